package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"market_gateway/config"
	"market_gateway/models"
)

// ErrNotFound is returned inside adapters when the upstream recognizes the
// symbol as absent, so callers can render "unknown symbol" rather than
// "service degraded".
var ErrNotFound = errors.New("symbol not found")

// Provider wraps one upstream category behind a normalized fetch. The adapter
// enforces its own timeout and never lets an upstream failure escape as an
// error: failures become Status values on the result.
type Provider interface {
	Category() models.Category
	Fetch(ctx context.Context, symbol, period string) models.ProviderResult
	// Probe is a cheap liveness check used by the health monitor.
	Probe(ctx context.Context) error
}

// Build constructs one adapter per category from config. This is the only
// place in the gateway where categories map to concrete adapters.
func Build(cfg *config.Config) map[models.Category]Provider {
	client := &http.Client{Timeout: cfg.FetchTimeout()}
	timeout := cfg.FetchTimeout()

	return map[models.Category]Provider{
		models.CategoryEquity:     NewEquityProvider(cfg.EquityAPIURL, client, timeout),
		models.CategoryCrypto:     NewCryptoProvider(cfg.CryptoAPIURL, client, timeout),
		models.CategoryMetal:      NewMetalProvider(timeout),
		models.CategoryCompliance: NewComplianceProvider(cfg.ComplianceAPIURL, client, timeout),
	}
}

// okResult builds a successful result.
func okResult(category models.Category, symbol string, payload interface{}) models.ProviderResult {
	return models.ProviderResult{
		Category:  category,
		Symbol:    symbol,
		Status:    models.StatusOK,
		Payload:   payload,
		FetchedAt: time.Now(),
	}
}

// failResult classifies err into a per-item status.
func failResult(category models.Category, symbol string, err error) models.ProviderResult {
	status := models.StatusUpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		status = models.StatusNotFound
	case isTimeout(err):
		status = models.StatusTimeout
	}
	return models.ProviderResult{
		Category:  category,
		Symbol:    symbol,
		Status:    status,
		FetchedAt: time.Now(),
		Error:     err.Error(),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
