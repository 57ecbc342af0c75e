package providers

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"market_gateway/models"
)

// metalNames whitelists the precious-metal futures the gateway serves.
// Anything else is rejected before touching the upstream.
var metalNames = map[string]string{
	"GC=F": "Gold Futures",
	"SI=F": "Silver Futures",
	"PL=F": "Platinum Futures",
	"PA=F": "Palladium Futures",
	"HG=F": "Copper Futures",
}

// MetalProvider quotes precious-metal futures through the finance-go Yahoo
// client. The library owns transport details; the adapter owns the timeout.
type MetalProvider struct {
	timeout time.Duration
}

// NewMetalProvider creates the metals adapter.
func NewMetalProvider(timeout time.Duration) *MetalProvider {
	return &MetalProvider{timeout: timeout}
}

// Category implements Provider.
func (p *MetalProvider) Category() models.Category {
	return models.CategoryMetal
}

// Fetch implements Provider. The client library has no context support, so
// the call runs in its own goroutine and the adapter abandons it on timeout.
func (p *MetalProvider) Fetch(ctx context.Context, symbol, period string) models.ProviderResult {
	name, known := metalNames[symbol]
	if !known {
		return failResult(models.CategoryMetal, symbol, ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type quoteResult struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan quoteResult, 1)
	go func() {
		q, err := quote.Get(symbol)
		ch <- quoteResult{q: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return failResult(models.CategoryMetal, symbol, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return failResult(models.CategoryMetal, symbol, fmt.Errorf("quote fetch failed: %w", r.err))
		}
		if r.q == nil {
			return failResult(models.CategoryMetal, symbol, ErrNotFound)
		}
		return okResult(models.CategoryMetal, symbol, models.Quote{
			Symbol:        symbol,
			Name:          name,
			Price:         r.q.RegularMarketPrice,
			Change:        r.q.RegularMarketChange,
			ChangePercent: r.q.RegularMarketChangePercent,
			Open:          r.q.RegularMarketOpen,
			High:          r.q.RegularMarketDayHigh,
			Low:           r.q.RegularMarketDayLow,
			PrevClose:     r.q.RegularMarketPreviousClose,
			Volume:        float64(r.q.RegularMarketVolume),
			Currency:      "USD",
		})
	}
}

// Probe implements Provider by quoting gold, the most liquid symbol served.
func (p *MetalProvider) Probe(ctx context.Context) error {
	res := p.Fetch(ctx, "GC=F", "")
	if res.Status == models.StatusOK {
		return nil
	}
	return fmt.Errorf("metal probe failed: %s", res.Error)
}
