package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type paymentIntentAPI interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeVerifier retrieves payment intent state from Stripe.
type StripeVerifier struct {
	intents paymentIntentAPI
}

// NewStripeVerifier constructs a verifier using the given API key.
func NewStripeVerifier(apiKey string) (*StripeVerifier, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(key, nil)
	return &StripeVerifier{intents: sc.PaymentIntents}, nil
}

// Verify fetches the intent and reports whether the charge succeeded.
func (v *StripeVerifier) Verify(ctx context.Context, intentID string) (Result, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return Result{}, errors.New("stripe: payment intent id is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := v.intents.Get(intentID, params)
	if err != nil {
		return Result{}, err
	}
	if intent == nil {
		return Result{IntentID: intentID}, nil
	}

	return Result{
		IntentID: intent.ID,
		Paid:     intent.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:   intent.Amount,
		Currency: strings.ToLower(string(intent.Currency)),
	}, nil
}
