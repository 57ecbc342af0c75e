package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"market_gateway/config"
	"market_gateway/routes"
	"market_gateway/scheduler"
	"market_gateway/services"
	"market_gateway/services/aggregator"
	"market_gateway/services/cache"
	"market_gateway/services/health"
	"market_gateway/services/providers"
)

func main() {
	log.Println("==============================================")
	log.Println("  Market Intelligence Gateway - Starting...")
	log.Println("==============================================")

	// Load configuration; invalid config is fatal here, never at request
	// time.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Wire the gateway: cache, adapters, aggregator, health, realtime views.
	store := cache.NewStore(cfg.CacheTTL())
	provs := providers.Build(cfg)
	agg := aggregator.New(store, provs, cfg.MaxFanout)
	realtime := services.NewRealtimeService(agg, cfg.RefreshInterval())

	monitor := health.NewMonitor(cfg.ProbeInterval(), cfg.FailureThreshold, realtime.BroadcastHealth)
	for _, p := range provs {
		p := p
		monitor.Register(string(p.Category()), p.Probe)
	}
	probeClient := &http.Client{Timeout: 10 * time.Second}
	if cfg.NotebookURL != "" {
		monitor.Register("notebook", health.HTTPProbe(probeClient, cfg.NotebookURL))
	}
	if cfg.WorkflowURL != "" {
		monitor.Register("workflow", health.HTTPProbe(probeClient, cfg.WorkflowURL))
	}
	if err := monitor.Start(); err != nil {
		log.Fatalf("Health monitor error: %v", err)
	}

	// Setup all API routes
	routes.SetupRoutes(router, cfg, agg, store, monitor, realtime)

	// Start background jobs
	jobScheduler := scheduler.NewScheduler(cfg, agg, store, monitor)
	go jobScheduler.Start()

	// Create HTTP server with timeouts; bind to 0.0.0.0 explicitly for
	// container networking.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(server, jobScheduler, monitor, realtime)
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler,
	monitor *health.Monitor, realtime *services.RealtimeService) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop background work first so nothing refreshes into a closing server
	jobScheduler.Stop()
	monitor.Stop()
	realtime.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server shutdown completed")
}
