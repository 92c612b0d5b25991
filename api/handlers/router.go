package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-inventory/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	Items    *services.ItemService
	Carts    *services.CartService
	Checkout *services.CheckoutService
	DB       Pinger
	Logger   *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	itemHandler := NewItemHandler(cfg.Items)
	cartHandler := NewCartHandler(cfg.Carts)
	purchaseHandler := NewPurchaseHandler(cfg.Checkout, cfg.Items)

	router := gin.New()
	router.Use(RequestID())
	router.Use(AccessLog(logger))
	router.Use(Recovery(logger))

	api := router.Group("/api")
	{
		items := api.Group("/items")
		{
			items.GET("", itemHandler.ListItems)
			items.POST("", itemHandler.CreateItem)
			items.GET("/:id", itemHandler.GetItem)
			items.PATCH("/:id", itemHandler.UpdateItem)
			items.DELETE("/:id", itemHandler.DeleteItem)
		}

		api.POST("/add-to-cart", cartHandler.AddToCart)
		api.DELETE("/remove-from-cart", cartHandler.RemoveFromCart)
		api.GET("/cart/:user_id", cartHandler.ViewCart)

		api.POST("/purchase", purchaseHandler.Purchase)
		api.POST("/confirm-purchase", purchaseHandler.ConfirmPurchase)
		api.GET("/purchases/:user_id", purchaseHandler.ListPurchases)

		api.GET("/health", healthCheck(cfg.DB))
	}

	return router
}

// GET /api/health
func healthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"success": false,
					"status":  "unavailable",
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	}
}
