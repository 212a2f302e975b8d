package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payments"
)

type verifyPaymentRequest struct {
	PaymentIntent string `json:"paymentIntent" binding:"required"`
}

// POST /user/orders/:id/payment/verify — asks the payment provider for the
// intent's real status and records the outcome on the order. The order's
// amount never comes from the client.
func VerifyPayment(engine *checkout.Engine, verifier payments.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/orders/:id/payment/verify"
		defer handlePanic(c, route)

		if verifier == nil {
			respondError(c, http.StatusServiceUnavailable, route, "payment verification unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusNotFound, route, "order not found")
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.Order(ctx, userID, orderID)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}
		if order.PaymentIntent != "" && order.PaymentIntent != req.PaymentIntent {
			respondError(c, http.StatusBadRequest, route, "payment intent does not belong to this order")
			return
		}

		result, err := verifier.Verify(ctx, req.PaymentIntent)
		if err != nil {
			log.Println("[PAYMENT] [ERROR] provider verification failed:", err)
			respondError(c, http.StatusBadGateway, route, "payment verification failed")
			return
		}

		// the intent must have charged exactly the order total; otherwise
		// any succeeded intent could settle any order
		if result.Paid && result.Amount != order.Total.MinorUnits() {
			log.Printf("[PAYMENT] [ERROR] amount mismatch on order %s: intent %d, order %d",
				order.OrderNumber, result.Amount, order.Total.MinorUnits())
			respondError(c, http.StatusBadRequest, route, "payment amount does not match order total")
			return
		}

		outcome := models.PaymentFailed
		if result.Paid {
			outcome = models.PaymentPaid
		}

		updated, err := engine.RecordPayment(ctx, userID, orderID, outcome)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		log.Printf("[PAYMENT] [INFO] order %s payment recorded as %s", updated.OrderNumber, outcome)
		respondOK(c, "payment "+string(outcome), updated)
	}
}
