package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the gateway configuration, read once at startup from the
// environment. Installation tooling owns the values; this process only
// consumes them.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Cache and refresh cadence. The server-side TTL and the client-side
	// refresh interval default to the same value but are independent knobs.
	CacheTTLSeconds        int `envconfig:"CACHE_TTL_SECONDS" default:"60"`
	RefreshIntervalSeconds int `envconfig:"REFRESH_INTERVAL_SECONDS" default:"60"`
	CacheSweepMaxAgeMin    int `envconfig:"CACHE_SWEEP_MAX_AGE_MINUTES" default:"60"`

	// Upstream fetch behavior.
	FetchTimeoutSeconds int `envconfig:"FETCH_TIMEOUT_SECONDS" default:"5"`
	MaxFanout           int `envconfig:"MAX_FANOUT" default:"8"`

	// Health monitor.
	ProbeIntervalSeconds int `envconfig:"HEALTH_PROBE_INTERVAL_SECONDS" default:"30"`
	FailureThreshold     int `envconfig:"HEALTH_FAILURE_THRESHOLD" default:"1"`

	// Upstream base URLs per provider category. The metals provider talks
	// to Yahoo through its own client library and needs no URL.
	EquityAPIURL     string `envconfig:"EQUITY_API_URL" default:"https://query1.finance.yahoo.com/v7/finance/quote"`
	CryptoAPIURL     string `envconfig:"CRYPTO_API_URL" default:"https://api.coingecko.com/api/v3"`
	ComplianceAPIURL string `envconfig:"COMPLIANCE_API_URL" default:""`

	// Auxiliary long-running services reachable only by liveness probe.
	NotebookURL string `envconfig:"NOTEBOOK_URL" default:""`
	WorkflowURL string `envconfig:"WORKFLOW_URL" default:""`

	// Symbols kept warm by the background refresh job, as category:symbol
	// pairs.
	Watchlist []string `envconfig:"WATCHLIST" default:"equity:AAPL,crypto:BTC-USD,metal:GC=F"`

	// Per-IP request budget for the market endpoints.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

var AppConfig *Config

// LoadConfig loads environment variables into a validated Config.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = &cfg
	return &cfg, nil
}

// Validate rejects configuration the gateway cannot run with. Invalid
// config is fatal at startup, never at request time.
func (c *Config) Validate() error {
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive, got %d", c.CacheTTLSeconds)
	}
	if c.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_SECONDS must be positive, got %d", c.RefreshIntervalSeconds)
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive, got %d", c.FetchTimeoutSeconds)
	}
	if c.MaxFanout <= 0 {
		return fmt.Errorf("MAX_FANOUT must be positive, got %d", c.MaxFanout)
	}
	if c.ProbeIntervalSeconds <= 0 {
		return fmt.Errorf("HEALTH_PROBE_INTERVAL_SECONDS must be positive, got %d", c.ProbeIntervalSeconds)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("HEALTH_FAILURE_THRESHOLD must be at least 1, got %d", c.FailureThreshold)
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RefreshInterval returns the client-view refresh cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FetchTimeout returns the per-adapter upstream timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ProbeInterval returns the health monitor probe cadence.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// CacheSweepMaxAge returns the hard age past which untouched cache entries
// are reclaimed by the background sweep.
func (c *Config) CacheSweepMaxAge() time.Duration {
	return time.Duration(c.CacheSweepMaxAgeMin) * time.Minute
}
