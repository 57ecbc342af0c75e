package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"market_gateway/config"
	"market_gateway/controllers"
	"market_gateway/middleware"
	"market_gateway/services"
	"market_gateway/services/aggregator"
	"market_gateway/services/cache"
	"market_gateway/services/health"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config, agg *aggregator.Aggregator,
	store *cache.Store, monitor *health.Monitor, realtime *services.RealtimeService) {

	marketController := controllers.NewMarketController(agg, store, monitor, realtime, cfg)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// Health check
	router.GET("/health", marketController.GetHealth)

	// Realtime view socket
	router.GET("/ws", func(c *gin.Context) {
		realtime.HandleWebSocket(c.Writer, c.Request)
	})

	// API v1 group
	api := router.Group("/api/v1")
	{
		market := api.Group("/market")
		market.Use(limiter.Middleware())
		{
			market.GET("/overview", marketController.GetOverview)
			market.GET("/realtime/status", marketController.RealtimeStatus)
			market.GET("/:category/:symbol", marketController.GetMarketItem)
		}

		cacheGroup := api.Group("/cache")
		{
			cacheGroup.POST("/invalidate", marketController.InvalidateCache)
		}
	}
}
