package models

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies which upstream family a symbol belongs to. The set is
// closed; adapters are constructed once per category and the aggregator never
// branches on category beyond this lookup.
type Category string

const (
	CategoryEquity     Category = "equity"
	CategoryCrypto     Category = "crypto"
	CategoryMetal      Category = "metal"
	CategoryCompliance Category = "compliance"
)

// Categories lists every supported category in a stable order.
func Categories() []Category {
	return []Category{CategoryEquity, CategoryCrypto, CategoryMetal, CategoryCompliance}
}

// ParseCategory validates a category name from a request path or query.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryEquity:
		return CategoryEquity, nil
	case CategoryCrypto:
		return CategoryCrypto, nil
	case CategoryMetal:
		return CategoryMetal, nil
	case CategoryCompliance:
		return CategoryCompliance, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Status describes the outcome of a single upstream fetch. Failures are data,
// never errors crossing the adapter boundary.
type Status string

const (
	StatusOK            Status = "ok"
	StatusTimeout       Status = "timeout"
	StatusUpstreamError Status = "upstream-error"
	StatusNotFound      Status = "not-found"
)

// ItemRequest is one (category, symbol) pair of a client request. Period is
// optional and only meaningful to some upstreams.
type ItemRequest struct {
	Category Category `json:"category"`
	Symbol   string   `json:"symbol"`
	Period   string   `json:"period,omitempty"`
}

// CacheKey returns the cache identity of this logical query.
func (r ItemRequest) CacheKey() string {
	if r.Period != "" {
		return fmt.Sprintf("%s:%s:%s", r.Category, r.Symbol, r.Period)
	}
	return fmt.Sprintf("%s:%s", r.Category, r.Symbol)
}

// ParseItem parses a "category:symbol" pair. A bare symbol is accepted when a
// default category is given (crypto symbols like BTC-USD keep their dash; the
// split is on the first colon only).
func ParseItem(s string, defaultCategory Category) (ItemRequest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ItemRequest{}, fmt.Errorf("empty symbol")
	}

	if cat, sym, found := strings.Cut(s, ":"); found {
		category, err := ParseCategory(cat)
		if err != nil {
			return ItemRequest{}, err
		}
		if strings.TrimSpace(sym) == "" {
			return ItemRequest{}, fmt.Errorf("empty symbol for category %s", category)
		}
		return ItemRequest{Category: category, Symbol: strings.TrimSpace(sym)}, nil
	}

	if defaultCategory == "" {
		return ItemRequest{}, fmt.Errorf("symbol %q has no category and no default was given", s)
	}
	return ItemRequest{Category: defaultCategory, Symbol: s}, nil
}

// ProviderResult is the normalized outcome of one fetch attempt. Payload is
// present iff Status is ok.
type ProviderResult struct {
	Category        Category    `json:"category"`
	Symbol          string      `json:"symbol"`
	Status          Status      `json:"status"`
	Payload         interface{} `json:"payload,omitempty"`
	FetchedAt       time.Time   `json:"fetched_at"`
	ServedFromCache bool        `json:"served_from_cache"`
	Stale           bool        `json:"stale,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// OK reports whether the fetch produced a usable payload.
func (r ProviderResult) OK() bool {
	return r.Status == StatusOK
}

// AggregateResponse is the merged outcome of one logical request. Items keep
// request order regardless of upstream completion order.
type AggregateResponse struct {
	Items       []ProviderResult `json:"items"`
	Partial     bool             `json:"partial"`
	RequestedAt time.Time        `json:"requested_at"`
}
