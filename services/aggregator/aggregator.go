package aggregator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"market_gateway/models"
	"market_gateway/services/cache"
	"market_gateway/services/providers"
)

// Aggregator fans one logical request out across the provider adapters,
// consults the cache first, and merges every item back in request order.
// Upstream failures degrade individual items; they never fail the whole
// response.
type Aggregator struct {
	store     *cache.Store
	providers map[models.Category]providers.Provider
	maxFanout int
	flight    singleflight.Group
}

// New creates an aggregator over the given cache store and adapter set.
func New(store *cache.Store, provs map[models.Category]providers.Provider, maxFanout int) *Aggregator {
	if maxFanout <= 0 {
		maxFanout = 8
	}
	return &Aggregator{store: store, providers: provs, maxFanout: maxFanout}
}

// Resolve answers every requested item exactly once, in request order. Fresh
// cache hits short-circuit without touching an adapter; misses are fetched
// concurrently with bounded fan-out; a failed refetch falls back to any
// resident stale entry before the item is reported failed.
func (a *Aggregator) Resolve(ctx context.Context, reqs []models.ItemRequest) models.AggregateResponse {
	resp := models.AggregateResponse{
		Items:       make([]models.ProviderResult, len(reqs)),
		RequestedAt: time.Now(),
	}

	type miss struct {
		idx int
		req models.ItemRequest
	}
	var misses []miss

	for i, req := range reqs {
		if value, found, fresh := a.store.Get(req.CacheKey()); found && fresh {
			resp.Items[i] = fromCache(value, false)
			continue
		}
		misses = append(misses, miss{idx: i, req: req})
	}

	if len(misses) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.maxFanout)
		for _, m := range misses {
			m := m
			g.Go(func() error {
				resp.Items[m.idx] = a.fetchOne(gctx, m.req)
				return nil
			})
		}
		g.Wait()
	}

	for _, item := range resp.Items {
		if !item.OK() {
			resp.Partial = true
			break
		}
	}
	return resp
}

// ResolveOne is the single-item convenience used by the per-symbol endpoint.
func (a *Aggregator) ResolveOne(ctx context.Context, req models.ItemRequest) models.ProviderResult {
	return a.Resolve(ctx, []models.ItemRequest{req}).Items[0]
}

// fetchOne fetches a cache miss through the adapter, collapsing concurrent
// duplicate fetches for the same key into one upstream call. Successes are
// written back before returning so the next request within the TTL is a pure
// hit.
func (a *Aggregator) fetchOne(ctx context.Context, req models.ItemRequest) models.ProviderResult {
	provider, ok := a.providers[req.Category]
	if !ok {
		// Construction wires every category; reaching this is a bug
		// upstream of the aggregator, reported as data all the same.
		return models.ProviderResult{
			Category:  req.Category,
			Symbol:    req.Symbol,
			Status:    models.StatusUpstreamError,
			FetchedAt: time.Now(),
			Error:     fmt.Sprintf("no provider for category %s", req.Category),
		}
	}

	key := req.CacheKey()
	v, _, _ := a.flight.Do(key, func() (interface{}, error) {
		result := provider.Fetch(ctx, req.Symbol, req.Period)
		if result.OK() {
			a.store.Set(key, result)
		}
		return result, nil
	})
	result := v.(models.ProviderResult)

	if result.OK() {
		return result
	}

	// Failed refetch: serve whatever is resident, however old, before
	// reporting a hard per-item failure.
	if value, found, fresh := a.store.Get(key); found {
		return fromCache(value, !fresh)
	}
	return result
}

// fromCache marks a cached result as served from cache with the given
// staleness.
func fromCache(value interface{}, stale bool) models.ProviderResult {
	result := value.(models.ProviderResult)
	result.ServedFromCache = true
	result.Stale = stale
	return result
}
