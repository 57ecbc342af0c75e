package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"market_gateway/config"
	"market_gateway/models"
	"market_gateway/services"
	"market_gateway/services/aggregator"
	"market_gateway/services/cache"
	"market_gateway/services/health"
)

// MarketController is the gateway's externally facing surface. It validates
// request shape, delegates to the aggregator, and annotates responses with
// staleness and health metadata. No caching or fetching logic lives here.
type MarketController struct {
	agg      *aggregator.Aggregator
	store    *cache.Store
	monitor  *health.Monitor
	realtime *services.RealtimeService
	cfg      *config.Config
}

// NewMarketController creates the controller.
func NewMarketController(agg *aggregator.Aggregator, store *cache.Store, monitor *health.Monitor,
	realtime *services.RealtimeService, cfg *config.Config) *MarketController {
	return &MarketController{agg: agg, store: store, monitor: monitor, realtime: realtime, cfg: cfg}
}

// GetMarketItem returns a single aggregate item.
// GET /api/v1/market/:category/:symbol
func (mc *MarketController) GetMarketItem(c *gin.Context) {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	req := models.ItemRequest{
		Category: category,
		Symbol:   symbol,
		Period:   c.Query("period"),
	}

	item := mc.agg.ResolveOne(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{
		"request_id": uuid.NewString(),
		"timestamp":  time.Now().Format(time.RFC3339),
		"item":       item,
	})
}

// GetOverview returns a full aggregate across symbols, optionally mixing
// categories with cat:sym pairs.
// GET /api/v1/market/overview?symbols=a,b,c&category=...
func (mc *MarketController) GetOverview(c *gin.Context) {
	symbolsParam := strings.TrimSpace(c.Query("symbols"))
	if symbolsParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter is required"})
		return
	}

	var defaultCategory models.Category
	if catParam := c.Query("category"); catParam != "" {
		category, err := models.ParseCategory(catParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defaultCategory = category
	}

	var reqs []models.ItemRequest
	for _, raw := range strings.Split(symbolsParam, ",") {
		req, err := models.ParseItem(raw, defaultCategory)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reqs = append(reqs, req)
	}

	resp := mc.agg.Resolve(c.Request.Context(), reqs)
	c.JSON(http.StatusOK, gin.H{
		"request_id": uuid.NewString(),
		"timestamp":  time.Now().Format(time.RFC3339),
		"health":     mc.monitor.Composite(),
		"items":      resp.Items,
		"partial":    resp.Partial,
	})
}

// invalidateRequest selects which cache keys to clear.
type invalidateRequest struct {
	Keys     []string `json:"keys"`
	Category string   `json:"category"`
	All      bool     `json:"all"`
}

// InvalidateCache forces subsequent lookups to refetch.
// POST /api/v1/cache/invalidate
func (mc *MarketController) InvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cleared := 0
	switch {
	case req.All:
		cleared = mc.store.InvalidateAll()
	case req.Category != "":
		category, err := models.ParseCategory(req.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cleared = mc.store.InvalidatePrefix(string(category) + ":")
	case len(req.Keys) > 0:
		for _, key := range req.Keys {
			if mc.store.Invalidate(key) {
				cleared++
			}
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "specify keys, category, or all"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"cleared": cleared,
	})
}

// GetHealth returns the composite health snapshot with cache configuration.
// GET /health
func (mc *MarketController) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        mc.monitor.Composite(),
		"services":      mc.monitor.Snapshot(),
		"ttl_seconds":   mc.cfg.CacheTTLSeconds,
		"cache_entries": mc.store.Len(),
		"realtime":      true,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

// RealtimeStatus reports the update cadence and hub metrics.
// GET /api/v1/market/realtime/status
func (mc *MarketController) RealtimeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"real_time_updates":    "enabled",
		"cache_ttl_seconds":    mc.cfg.CacheTTLSeconds,
		"refresh_interval_sec": mc.cfg.RefreshIntervalSeconds,
		"cache_entries":        mc.store.Len(),
		"watchlist_size":       len(mc.cfg.Watchlist),
		"views":                mc.realtime.GetStatus(),
		"timestamp":            time.Now().Format(time.RFC3339),
	})
}
