package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"time"

	"market_gateway/models"
)

// EquityProvider fetches stock and index quotes from a Yahoo-compatible
// quote endpoint.
type EquityProvider struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewEquityProvider creates the equities adapter against the given base URL.
func NewEquityProvider(baseURL string, client *http.Client, timeout time.Duration) *EquityProvider {
	return &EquityProvider{baseURL: baseURL, httpClient: client, timeout: timeout}
}

// Category implements Provider.
func (p *EquityProvider) Category() models.Category {
	return models.CategoryEquity
}

// quoteResponse mirrors the upstream quote envelope.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string  `json:"symbol"`
			ShortName                  string  `json:"shortName"`
			Currency                   string  `json:"currency"`
			RegularMarketPrice         float64 `json:"regularMarketPrice"`
			RegularMarketChange        float64 `json:"regularMarketChange"`
			RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
			RegularMarketOpen          float64 `json:"regularMarketOpen"`
			RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
			RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
			RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
			RegularMarketVolume        float64 `json:"regularMarketVolume"`
			MarketCap                  float64 `json:"marketCap"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Fetch implements Provider.
func (p *EquityProvider) Fetch(ctx context.Context, symbol, period string) models.ProviderResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?symbols=%s", p.baseURL, url.QueryEscape(symbol))
	var resp quoteResponse
	if err := p.getJSON(ctx, reqURL, &resp); err != nil {
		return failResult(models.CategoryEquity, symbol, err)
	}

	if len(resp.QuoteResponse.Result) == 0 {
		return failResult(models.CategoryEquity, symbol, ErrNotFound)
	}

	q := resp.QuoteResponse.Result[0]
	return okResult(models.CategoryEquity, symbol, models.Quote{
		Symbol:        symbol,
		Name:          q.ShortName,
		Price:         q.RegularMarketPrice,
		Change:        q.RegularMarketChange,
		ChangePercent: q.RegularMarketChangePercent,
		Open:          q.RegularMarketOpen,
		High:          q.RegularMarketDayHigh,
		Low:           q.RegularMarketDayLow,
		PrevClose:     q.RegularMarketPreviousClose,
		Volume:        q.RegularMarketVolume,
		MarketCap:     q.MarketCap,
		Currency:      q.Currency,
	})
}

// Probe implements Provider with a lightweight GET against the quote
// endpoint.
func (p *EquityProvider) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("equity upstream returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *EquityProvider) getJSON(ctx context.Context, reqURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// setBrowserHeaders keeps quote endpoints that reject bare clients happy.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
