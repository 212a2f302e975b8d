package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type createProductRequest struct {
	Name        string       `json:"name" binding:"required"`
	Price       models.Money `json:"price" binding:"required"`
	SaleEnabled bool         `json:"saleEnabled"`
	SalePrice   *models.Money `json:"salePrice"`
	Category    []string     `json:"category" binding:"required"`
	Description string       `json:"description"`
	Brand       string       `json:"brand"`
	Barcode     string       `json:"barcode"`
	Stock       int          `json:"stock" binding:"min=0"`
	IsActive    *bool        `json:"isActive"`
	IsCampaign  bool         `json:"isCampaign"`
}

type updateProductRequest struct {
	Name        *string       `json:"name"`
	Price       *models.Money `json:"price"`
	SaleEnabled *bool         `json:"saleEnabled"`
	SalePrice   *models.Money `json:"salePrice"`
	Category    []string      `json:"category"`
	Description *string       `json:"description"`
	Brand       *string       `json:"brand"`
	Barcode     *string       `json:"barcode"`
	Stock       *int          `json:"stock"`
	IsActive    *bool         `json:"isActive"`
	IsCampaign  *bool         `json:"isCampaign"`
}

// GET /admin/api/products — includes inactive and soft-deleted products.
func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("products").Find(ctx, bson.M{}, findOptions)
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		respondOK(c, "ok", products)
	}
}

// POST /admin/api/products
func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		salePrice := models.MoneyFromInt(0)
		if req.SalePrice != nil {
			salePrice = *req.SalePrice
		}
		if err := validateSaleFields(req.Price, req.SaleEnabled, salePrice, req.SalePrice != nil); err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Price:       req.Price,
			SaleEnabled: req.SaleEnabled,
			SalePrice:   salePrice,
			Category:    models.CategoryList(req.Category),
			Description: strings.TrimSpace(req.Description),
			Brand:       strings.TrimSpace(req.Brand),
			Barcode:     strings.TrimSpace(req.Barcode),
			Stock:       req.Stock,
			IsActive:    isActive,
			IsCampaign:  req.IsCampaign,
			CreatedAt:   time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if mongo.IsDuplicateKeyError(err) {
			respondError(c, http.StatusBadRequest, route, "barcode already exists")
			return
		}
		if err != nil {
			log.Println("[PRODUCT] [ERROR] insert failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}
		product.Derive()

		log.Println("[PRODUCT] [INFO] product created:", product.Name)
		respondCreated(c, "product created", product)
	}
}

// PUT /admin/api/products/:id
func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		sale, err := resolveSaleUpdate(existing.Price, existing.SaleEnabled, existing.SalePrice, saleUpdateInput{
			Price:       req.Price,
			SaleEnabled: req.SaleEnabled,
			SalePrice:   req.SalePrice,
		})
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		set := bson.M{"price": sale.Price}
		if sale.SetSaleEnabled {
			set["saleEnabled"] = sale.SaleEnabled
		}
		if sale.SetSalePrice {
			set["salePrice"] = sale.SalePrice
		}
		if req.Name != nil {
			set["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Category != nil {
			set["category"] = models.CategoryList(req.Category)
		}
		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Brand != nil {
			set["brand"] = strings.TrimSpace(*req.Brand)
		}
		if req.Barcode != nil {
			set["barcode"] = strings.TrimSpace(*req.Barcode)
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondError(c, http.StatusBadRequest, route, "stock cannot be negative")
				return
			}
			set["stock"] = *req.Stock
		}
		if req.IsActive != nil {
			set["isActive"] = *req.IsActive
		}
		if req.IsCampaign != nil {
			set["isCampaign"] = *req.IsCampaign
		}

		if _, err := db.Collection("products").UpdateByID(ctx, productID, bson.M{"$set": set}); err != nil {
			log.Println("[PRODUCT] [ERROR] update failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		var updated models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&updated); err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		updated.Derive()

		respondOK(c, "product updated", updated)
	}
}

// DELETE /admin/api/products/:id — soft delete so existing order item
// snapshots keep resolving.
func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now().UTC()
		res, err := db.Collection("products").UpdateByID(ctx, productID, bson.M{
			"$set": bson.M{
				"isDeleted": true,
				"isActive":  false,
				"deletedAt": now,
			},
		})
		if err != nil {
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}

		log.Println("[PRODUCT] [INFO] product soft-deleted:", productID.Hex())
		respondOK(c, "product deleted", nil)
	}
}
