package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/payments"
	"storefront/internal/store"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureWishlistIndexes(db); err != nil {
		log.Printf("wishlist index warning: %v", err)
	}

	engine := checkout.NewEngine(store.NewMongo(db))

	var verifier payments.Verifier
	if config.AppEnv.StripeAPIKey != "" {
		stripeVerifier, err := payments.NewStripeVerifier(config.AppEnv.StripeAPIKey)
		if err != nil {
			log.Fatal(err)
		}
		verifier = stripeVerifier
	} else {
		log.Println("STRIPE_API_KEY not set, payment verification disabled")
	}

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/login", handlers.Login(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/refresh", handlers.Refresh(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/campaign", handlers.GetCampaignProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.GET("/categories", handlers.GetCategories(db))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/cart", handlers.GetCart(db))
		user.POST("/cart", handlers.AddCartItem(db))
		user.PUT("/cart/:productId", handlers.UpdateCartItem(db))
		user.DELETE("/cart/:productId", handlers.RemoveCartItem(db))
		user.DELETE("/cart", handlers.ClearCart(db))

		user.GET("/wishlist", handlers.GetWishlist(db))
		user.POST("/wishlist", handlers.AddWishlistItem(db))
		user.DELETE("/wishlist/:productId", handlers.RemoveWishlistItem(db))

		user.GET("/addresses", handlers.GetUserAddresses(db))
		user.POST("/addresses", handlers.CreateUserAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteUserAddress(db))

		user.GET("/checkout/preview", handlers.CheckoutPreview(engine))
		user.POST("/orders", handlers.CreateOrder(engine))
		user.GET("/orders", handlers.ListOrders(engine))
		user.GET("/orders/:id", handlers.GetOrder(engine))
		user.POST("/orders/:id/cancel", handlers.CancelOrder(engine))
		user.POST("/orders/:id/payment/verify", handlers.VerifyPayment(engine, verifier))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(engine))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(engine))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
