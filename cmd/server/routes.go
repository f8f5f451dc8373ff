package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"souqra-system/config"
	"souqra-system/internal/cart"
	"souqra-system/internal/catalog"
	"souqra-system/internal/database"
	"souqra-system/internal/orders"
	"souqra-system/internal/server/handlers"
	"souqra-system/internal/server/middleware"
	"souqra-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateShopDB(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	catalogService := catalog.NewService(db, redisClient)
	cartStore := cart.NewStore(redisClient)
	orderService := orders.NewService(db, redisClient, catalogService)

	storefront := handlers.NewStorefrontHandler(catalogService, cartStore, orderService)
	admin := handlers.NewAdminHandler(cfg.Auth, catalogService, orderService)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		products := public.Group("/products")
		{
			products.GET("", storefront.ListProducts)
			products.GET("/:id", storefront.GetProduct)
		}

		categories := public.Group("/categories")
		{
			categories.GET("", storefront.ListCategories)
			categories.GET("/:id/products", storefront.ListProductsByCategory)
		}

		cartGroup := public.Group("/cart")
		{
			cartGroup.GET("", storefront.GetCart)
			cartGroup.POST("/items", storefront.AddCartItem)
			cartGroup.PUT("/items", storefront.UpdateCartItem)
			cartGroup.DELETE("/items", storefront.RemoveCartItem)
			cartGroup.DELETE("", storefront.ClearCart)
		}

		public.GET("/delivery-settings", storefront.GetDeliverySettings)
		public.POST("/checkout", storefront.Checkout)

		public.POST("/auth/login", admin.Login)
	}

	// --- Admin API Group ---
	protected := r.Group("/api/v1/admin")
	protected.Use(middleware.JWTAuth())
	{
		products := protected.Group("/products")
		{
			products.POST("", admin.CreateProduct)
			products.PUT("/:id", admin.UpdateProduct)
			products.DELETE("/:id", admin.DeleteProduct)
		}

		variants := protected.Group("/variants")
		{
			variants.DELETE("/:id", admin.DeleteVariant)
			variants.PUT("/:id/stock", admin.SetVariantStock)
		}

		categories := protected.Group("/categories")
		{
			categories.POST("", admin.CreateCategory)
			categories.PUT("/:id", admin.UpdateCategory)
			categories.DELETE("/:id", admin.DeleteCategory)
		}

		orderGroup := protected.Group("/orders")
		{
			orderGroup.GET("", admin.ListOrders)
			orderGroup.GET("/:id", admin.GetOrder)
			orderGroup.PUT("/:id/status", admin.UpdateOrderStatus)
			orderGroup.DELETE("/:id", admin.DeleteOrder)
		}

		protected.GET("/dashboard", admin.DashboardStats)
		protected.PUT("/delivery-settings", admin.UpdateDeliverySettings)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
