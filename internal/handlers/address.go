package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type addressRequest struct {
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Street    string `json:"street" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	Pincode   string `json:"pincode" binding:"required"`
	Country   string `json:"country" binding:"required"`
	IsDefault bool   `json:"isDefault"`
}

// GET /user/addresses
func GetUserAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "user not found")
			return
		}

		respondOK(c, "ok", user.Addresses)
	}
}

// POST /user/addresses — marking the new address default clears the flag
// on every other address, keeping at most one default per user.
func CreateUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "user not found")
			return
		}

		if req.IsDefault {
			for i := range user.Addresses {
				user.Addresses[i].IsDefault = false
			}
		}

		address := addressFromRequest(req)
		address.ID = uuid.NewString()

		user.Addresses = append(user.Addresses, address)
		user.UpdatedAt = time.Now().UTC()

		if err := saveAddresses(ctx, db, user); err != nil {
			log.Println("[ADDRESS] [ERROR] insert address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		respondCreated(c, "address created", address)
	}
}

// PUT /user/addresses/:id
func UpdateUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/addresses/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "user not found")
			return
		}

		target := user.AddressByID(addressID)
		if target == nil {
			respondError(c, http.StatusNotFound, route, "address not found")
			return
		}

		if req.IsDefault {
			for i := range user.Addresses {
				user.Addresses[i].IsDefault = false
			}
		}

		updated := addressFromRequest(req)
		updated.ID = addressID
		*target = updated
		user.UpdatedAt = time.Now().UTC()

		if err := saveAddresses(ctx, db, user); err != nil {
			log.Println("[ADDRESS] [ERROR] update address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondOK(c, "address updated", updated)
	}
}

// DELETE /user/addresses/:id
func DeleteUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/addresses/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "user not found")
			return
		}

		kept := user.Addresses[:0]
		found := false
		for _, address := range user.Addresses {
			if address.ID == addressID {
				found = true
				continue
			}
			kept = append(kept, address)
		}
		if !found {
			respondError(c, http.StatusNotFound, route, "address not found")
			return
		}

		user.Addresses = kept
		user.UpdatedAt = time.Now().UTC()

		if err := saveAddresses(ctx, db, user); err != nil {
			log.Println("[ADDRESS] [ERROR] delete address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondOK(c, "address deleted", nil)
	}
}

func addressFromRequest(req addressRequest) models.Address {
	return models.Address{
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Street:    strings.TrimSpace(req.Street),
		City:      strings.TrimSpace(req.City),
		State:     strings.TrimSpace(req.State),
		Pincode:   strings.TrimSpace(req.Pincode),
		Country:   strings.TrimSpace(req.Country),
		IsDefault: req.IsDefault,
	}
}

func saveAddresses(ctx context.Context, db *mongo.Database, user models.User) error {
	_, err := db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
		"$set": bson.M{
			"addresses": user.Addresses,
			"updatedAt": user.UpdatedAt,
		},
	})
	return err
}
