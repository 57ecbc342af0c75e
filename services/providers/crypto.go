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

// CryptoProvider fetches cryptocurrency quotes from a simple-price style
// JSON API.
type CryptoProvider struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewCryptoProvider creates the crypto adapter against the given base URL.
func NewCryptoProvider(baseURL string, client *http.Client, timeout time.Duration) *CryptoProvider {
	return &CryptoProvider{baseURL: baseURL, httpClient: client, timeout: timeout}
}

// Category implements Provider.
func (p *CryptoProvider) Category() models.Category {
	return models.CategoryCrypto
}

type cryptoQuote struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Change24h        float64 `json:"change_24h"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	Volume24h        float64 `json:"volume_24h"`
	MarketCap        float64 `json:"market_cap"`
	Currency         string  `json:"currency"`
}

// Fetch implements Provider.
func (p *CryptoProvider) Fetch(ctx context.Context, symbol, period string) models.ProviderResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/simple/quote?symbol=%s", p.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failResult(models.CategoryCrypto, symbol, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return failResult(models.CategoryCrypto, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return failResult(models.CategoryCrypto, symbol, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return failResult(models.CategoryCrypto, symbol,
			fmt.Errorf("upstream error (status %d)", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failResult(models.CategoryCrypto, symbol, fmt.Errorf("failed to read response: %w", err))
	}

	var q cryptoQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return failResult(models.CategoryCrypto, symbol, fmt.Errorf("failed to parse response: %w", err))
	}
	if q.Symbol == "" {
		return failResult(models.CategoryCrypto, symbol, ErrNotFound)
	}

	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}
	return okResult(models.CategoryCrypto, symbol, models.Quote{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         q.Price,
		Change:        q.Change24h,
		ChangePercent: q.ChangePercent24h,
		Volume:        q.Volume24h,
		MarketCap:     q.MarketCap,
		Currency:      currency,
	})
}

// Probe implements Provider.
func (p *CryptoProvider) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("crypto upstream returned status %d", resp.StatusCode)
	}
	return nil
}
