package router

import (
	"fmt"
	"strings"

	"github.com/z26b/storefront/internal/cache"
	"github.com/z26b/storefront/internal/config"
	publichandlers "github.com/z26b/storefront/internal/http/handlers/public"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	h := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	redisClient := cache.Client()
	cartWriteRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:cart", redisPrefix),
		WindowSeconds: cfg.RateLimit.CartWrite.WindowSeconds,
		MaxRequests:   cfg.RateLimit.CartWrite.MaxRequests,
	}
	submitRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:submit", redisPrefix),
		WindowSeconds: cfg.RateLimit.Submit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Submit.MaxRequests,
	}
	cartWriteLimit := RateLimitMiddleware(redisClient, cartWriteRule, KeyBySession)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(IdentityMiddleware(nil))
	r.Use(LoggerMiddleware(log))

	apiV1 := r.Group("/api/v1")
	{
		// 商品规格（无需身份）
		catalog := apiV1.Group("")
		{
			catalog.GET("/skus/:id", h.GetSku)
			catalog.GET("/spus/:id/skus", h.ListSpuSkus)
		}

		user := apiV1.Group("")
		user.Use(RequireIdentity(cfg.Backend.DevMode))
		{
			cart := user.Group("/cart")
			{
				cart.GET("", h.GetCart)
				cart.POST("/items", cartWriteLimit, h.AddCartItem)
				cart.PATCH("/items/:id/quantity", cartWriteLimit, h.UpdateCartItemQuantity)
				cart.PATCH("/items/:id/selected", cartWriteLimit, h.UpdateCartItemSelected)
				cart.POST("/select-all", cartWriteLimit, h.SelectAllCartItems)
				cart.DELETE("/items/:id", cartWriteLimit, h.DeleteCartItem)
				cart.POST("/settle", h.SettleCart)
			}

			checkout := user.Group("/checkout")
			{
				checkout.GET("", h.GetCheckout)
				checkout.POST("/submit", RateLimitMiddleware(redisClient, submitRule, KeyBySession), h.SubmitCheckout)
				checkout.GET("/attempts", h.ListCheckoutAttempts)
			}

			addresses := user.Group("/addresses")
			{
				addresses.GET("", h.ListAddresses)
				addresses.GET("/default", h.GetDefaultAddress)
				addresses.GET("/:id", h.GetAddress)
				addresses.POST("", h.CreateAddress)
				addresses.PUT("/:id", h.UpdateAddress)
				addresses.DELETE("/:id", h.DeleteAddress)
			}

			orders := user.Group("/orders")
			{
				orders.GET("", h.ListOrders)
				orders.GET("/counts", h.GetOrderCounts)
				orders.GET("/:id", h.GetOrder)
				orders.POST("/:id/cancel", h.CancelOrder)
				orders.POST("/:id/confirm", h.ConfirmOrderReceipt)
			}

			user.GET("/wallet/balance", h.GetWalletBalance)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
