package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/checkout"
	"storefront/internal/models"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GET /admin/api/orders — all users' orders, newest first.
func GetAllOrders(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := engine.ListAllOrders(ctx, page, limit)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		respondOK(c, "ok", result)
	}
}

// PUT /admin/api/orders/:id/status
func UpdateOrderStatus(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusNotFound, route, "order not found")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		next := models.OrderStatus(req.Status)
		if !next.Valid() {
			respondError(c, http.StatusBadRequest, route, "unknown order status: "+req.Status)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.AdvanceOrder(ctx, orderID, next)
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		log.Printf("[ORDER] [INFO] order %s moved to %s", order.OrderNumber, next)
		respondOK(c, "order status updated", order)
	}
}

// DELETE /admin/api/orders/:id — removes the order record entirely. Stock
// is not touched; cancellation is the path that restores it.
func DeleteOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusNotFound, route, "order not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("orders").DeleteOne(ctx, bson.M{"_id": orderID})
		if err != nil {
			log.Println("[ORDER] [ERROR] delete order failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.DeletedCount == 0 {
			respondError(c, http.StatusNotFound, route, "order not found")
			return
		}

		respondOK(c, "order deleted", nil)
	}
}
