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
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type cartLineResponse struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Product   models.Product `json:"product"`
}

// GET /user/cart
func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("cartItems").Find(ctx, bson.M{"userId": userID})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var items []models.CartItem
		if err := cursor.All(ctx, &items); err != nil {
			respondError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		lines := make([]cartLineResponse, 0, len(items))
		for _, item := range items {
			var product models.Product
			err := db.Collection("products").FindOne(ctx, bson.M{"_id": item.ProductID}).Decode(&product)
			if err == mongo.ErrNoDocuments {
				continue
			}
			if err != nil {
				respondError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			product.Derive()
			lines = append(lines, cartLineResponse{
				ProductID: item.ProductID.Hex(),
				Quantity:  item.Quantity,
				Product:   product,
			})
		}

		respondOK(c, "ok", lines)
	}
}

// POST /user/cart/items — adding a product already in the cart merges
// quantities; the (userId, productId) unique index backs this up.
func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addCartItemRequest
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

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       productID,
			"isActive":  bson.M{"$ne": false},
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		now := time.Now().UTC()
		_, err = db.Collection("cartItems").UpdateOne(ctx,
			bson.M{"userId": userID, "productId": productID},
			bson.M{
				"$inc": bson.M{"quantity": req.Quantity},
				"$set": bson.M{"updatedAt": now},
				"$setOnInsert": bson.M{
					"userId":    userID,
					"productId": productID,
					"createdAt": now,
				},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			log.Println("[CART] [ERROR] add item failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[CART] [INFO] item added:", productID.Hex())
		respondCreated(c, "item added to cart", nil)
	}
}

// PUT /user/cart/items/:productId — replaces the quantity.
func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/cart/items/:productId"
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

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("cartItems").UpdateOne(ctx,
			bson.M{"userId": userID, "productId": productID},
			bson.M{"$set": bson.M{"quantity": req.Quantity, "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		respondOK(c, "cart item updated", nil)
	}
}

// DELETE /user/cart/items/:productId
func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/cart/items/:productId"
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

		res, err := db.Collection("cartItems").DeleteOne(ctx, bson.M{"userId": userID, "productId": productID})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		respondOK(c, "cart item removed", nil)
	}
}

// DELETE /user/cart
func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("cartItems").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondOK(c, "cart cleared", nil)
	}
}
