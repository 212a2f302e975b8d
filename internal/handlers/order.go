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
)

type createOrderRequest struct {
	AddressID     string `json:"addressId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	PaymentIntent string `json:"paymentIntent"`
	Notes         string `json:"notes"`
}

// GET /user/checkout/preview — prices the current cart without touching
// stock or creating anything.
func CheckoutPreview(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/checkout/preview"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		quote, err := engine.Preview(ctx, userID)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		respondOK(c, "ok", quote)
	}
}

// POST /user/orders
func CreateOrder(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.CreateOrder(ctx, userID, checkout.CreateOrderInput{
			AddressID:     req.AddressID,
			PaymentMethod: models.PaymentMethod(req.PaymentMethod),
			PaymentIntent: req.PaymentIntent,
			Notes:         req.Notes,
		})
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created:", order.OrderNumber)
		respondCreated(c, "order created", order)
	}
}

// GET /user/orders
func ListOrders(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := engine.ListOrders(ctx, userID, page, limit)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		respondOK(c, "ok", result)
	}
}

// GET /user/orders/:id
func GetOrder(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/orders/:id"
		defer handlePanic(c, route)

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

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := engine.Order(ctx, userID, orderID)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		respondOK(c, "ok", order)
	}
}

// POST /user/orders/:id/cancel
func CancelOrder(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/orders/:id/cancel"
		defer handlePanic(c, route)

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

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.CancelOrder(ctx, userID, orderID)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order cancelled:", order.OrderNumber)
		respondOK(c, "order cancelled", order)
	}
}
