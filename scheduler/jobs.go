package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"market_gateway/config"
	"market_gateway/models"
	"market_gateway/services/aggregator"
	"market_gateway/services/cache"
	"market_gateway/services/health"
)

// Scheduler manages the gateway's background jobs.
type Scheduler struct {
	cron      *gocron.Scheduler
	cfg       *config.Config
	agg       *aggregator.Aggregator
	store     *cache.Store
	monitor   *health.Monitor
	watchlist []models.ItemRequest
}

// NewScheduler creates a new scheduler instance. Unparseable watchlist
// entries are dropped with a warning rather than failing startup.
func NewScheduler(cfg *config.Config, agg *aggregator.Aggregator, store *cache.Store, monitor *health.Monitor) *Scheduler {
	var watchlist []models.ItemRequest
	for _, raw := range cfg.Watchlist {
		req, err := models.ParseItem(raw, "")
		if err != nil {
			log.Printf("Skipping invalid watchlist entry %q: %v", raw, err)
			continue
		}
		watchlist = append(watchlist, req)
	}

	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		cfg:       cfg,
		agg:       agg,
		store:     store,
		monitor:   monitor,
		watchlist: watchlist,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Keep the watchlist warm on the refresh cadence so client views mostly
	// hit cache.
	s.cron.Every(s.cfg.RefreshIntervalSeconds).Seconds().Do(func() {
		s.warmWatchlist()
	})

	// Reclaim entries nothing has touched in a long while.
	s.cron.Every(1).Hour().Do(func() {
		s.sweepCache()
	})

	// Periodic operational stats.
	s.cron.Every(10).Minutes().Do(func() {
		s.logStats()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// warmWatchlist refreshes every watched symbol through the aggregator, which
// writes successes back to the cache.
func (s *Scheduler) warmWatchlist() {
	if len(s.watchlist) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.FetchTimeout())
	defer cancel()

	resp := s.agg.Resolve(ctx, s.watchlist)

	failed := 0
	for _, item := range resp.Items {
		if !item.OK() {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("Watchlist warm refresh: %d/%d items failed", failed, len(resp.Items))
	}
}

// sweepCache bounds cache memory by dropping long-untouched entries.
func (s *Scheduler) sweepCache() {
	removed := s.store.Sweep(s.cfg.CacheSweepMaxAge())
	if removed > 0 {
		log.Printf("Cache sweep removed %d entries", removed)
	}
}

// logStats logs cache and health figures for operators.
func (s *Scheduler) logStats() {
	log.Printf("Gateway stats: cache_entries=%d composite_health=%s",
		s.store.Len(), s.monitor.Composite())
}
