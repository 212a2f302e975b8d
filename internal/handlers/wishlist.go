package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// GET /user/wishlist
func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/wishlist"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("wishlistItems").Find(ctx, bson.M{"userId": userID})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var items []models.WishlistItem
		if err := cursor.All(ctx, &items); err != nil {
			respondError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		products := make([]models.Product, 0, len(items))
		for _, item := range items {
			var product models.Product
			err := db.Collection("products").FindOne(ctx, bson.M{
				"_id":       item.ProductID,
				"isDeleted": bson.M{"$ne": true},
			}).Decode(&product)
			if err == mongo.ErrNoDocuments {
				continue
			}
			if err != nil {
				respondError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			product.Derive()
			products = append(products, product)
		}

		respondOK(c, "ok", products)
	}
}

// POST /user/wishlist — re-adding the same product is a no-op.
func AddWishlistItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/wishlist"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("products").CountDocuments(ctx, bson.M{
			"_id":       productID,
			"isDeleted": bson.M{"$ne": true},
		})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if count == 0 {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}

		item := models.WishlistItem{
			UserID:    userID,
			ProductID: productID,
			CreatedAt: time.Now().UTC(),
		}
		_, err = db.Collection("wishlistItems").InsertOne(ctx, item)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCreated(c, "added to wishlist", nil)
	}
}

// DELETE /user/wishlist/:productId
func RemoveWishlistItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/wishlist/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("wishlistItems").DeleteOne(ctx, bson.M{"userId": userID, "productId": productID})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, http.StatusNotFound, route, "wishlist item not found")
			return
		}

		respondOK(c, "removed from wishlist", nil)
	}
}
