package payments

import "context"

// Result is the provider-reported state of one payment intent.
type Result struct {
	IntentID string
	Paid     bool
	Amount   int64 // minor units as reported by the provider
	Currency string
}

// Verifier checks a payment intent against the payment provider. The
// backend never trusts client-reported payment state; an order's payment
// status only changes after a verification call succeeds.
type Verifier interface {
	Verify(ctx context.Context, intentID string) (Result, error)
}
