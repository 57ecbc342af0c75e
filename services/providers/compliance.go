package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"market_gateway/models"
)

// maxDebtRatio is the screening threshold: total debt must stay below a
// third of market capitalization.
var maxDebtRatio = decimal.NewFromFloat(0.33)

// prohibitedSectors fail screening regardless of the debt ratio.
var prohibitedSectors = map[string]bool{
	"Alcohol":              true,
	"Gambling":             true,
	"Tobacco":              true,
	"Conventional Banking": true,
	"Adult Entertainment":  true,
	"Weapons":              true,
}

// builtinScreens backs the adapter when no screening upstream is configured,
// covering the Saudi large caps the dashboards ship with.
var builtinScreens = map[string]screeningRecord{
	"2222.SR": {Symbol: "2222.SR", Name: "Saudi Aramco", Sector: "Energy", BusinessType: "Oil & Gas Production", TotalDebt: 110_000_000_000, MarketCap: 1_800_000_000_000},
	"1120.SR": {Symbol: "1120.SR", Name: "Al Rajhi Bank", Sector: "Islamic Banking", BusinessType: "Sharia-Compliant Banking", TotalDebt: 0, MarketCap: 330_000_000_000},
	"2030.SR": {Symbol: "2030.SR", Name: "SABIC", Sector: "Petrochemicals", BusinessType: "Chemical Manufacturing", TotalDebt: 45_000_000_000, MarketCap: 250_000_000_000},
	"2170.SR": {Symbol: "2170.SR", Name: "Almarai", Sector: "Food & Beverages", BusinessType: "Dairy & Food Production", TotalDebt: 14_000_000_000, MarketCap: 55_000_000_000},
	"1140.SR": {Symbol: "1140.SR", Name: "Alinma Bank", Sector: "Islamic Banking", BusinessType: "Full Sharia Banking", TotalDebt: 0, MarketCap: 80_000_000_000},
}

// screeningRecord is the raw figure set a verdict is computed from, either
// fetched from the screening upstream or taken from the builtin table.
type screeningRecord struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	BusinessType string  `json:"business_type"`
	TotalDebt    float64 `json:"total_debt"`
	MarketCap    float64 `json:"market_cap"`
}

// ComplianceProvider screens symbols against sector and debt-ratio rules.
// The verdict is computed here, not upstream, so every caller sees the same
// policy.
type ComplianceProvider struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewComplianceProvider creates the screening adapter. An empty base URL
// selects the builtin table.
func NewComplianceProvider(baseURL string, client *http.Client, timeout time.Duration) *ComplianceProvider {
	return &ComplianceProvider{baseURL: baseURL, httpClient: client, timeout: timeout}
}

// Category implements Provider.
func (p *ComplianceProvider) Category() models.Category {
	return models.CategoryCompliance
}

// Fetch implements Provider.
func (p *ComplianceProvider) Fetch(ctx context.Context, symbol, period string) models.ProviderResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rec, err := p.lookup(ctx, symbol)
	if err != nil {
		return failResult(models.CategoryCompliance, symbol, err)
	}
	return okResult(models.CategoryCompliance, symbol, screen(rec))
}

func (p *ComplianceProvider) lookup(ctx context.Context, symbol string) (screeningRecord, error) {
	if p.baseURL == "" {
		rec, ok := builtinScreens[symbol]
		if !ok {
			return screeningRecord{}, ErrNotFound
		}
		return rec, nil
	}

	reqURL := fmt.Sprintf("%s/screening/%s", p.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return screeningRecord{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return screeningRecord{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return screeningRecord{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return screeningRecord{}, fmt.Errorf("upstream error (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return screeningRecord{}, fmt.Errorf("failed to read response: %w", err)
	}

	var rec screeningRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return screeningRecord{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if rec.Symbol == "" {
		return screeningRecord{}, ErrNotFound
	}
	return rec, nil
}

// screen applies the sector rule and the debt-ratio threshold.
func screen(rec screeningRecord) models.ComplianceVerdict {
	verdict := models.ComplianceVerdict{
		Symbol:       rec.Symbol,
		Name:         rec.Name,
		Sector:       rec.Sector,
		BusinessType: rec.BusinessType,
		Compliant:    true,
	}

	if prohibitedSectors[rec.Sector] {
		verdict.Compliant = false
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("sector %q is prohibited", rec.Sector))
	}

	if rec.MarketCap > 0 {
		verdict.DebtRatio = decimal.NewFromFloat(rec.TotalDebt).
			Div(decimal.NewFromFloat(rec.MarketCap)).Round(4)
		if verdict.DebtRatio.GreaterThanOrEqual(maxDebtRatio) {
			verdict.Compliant = false
			verdict.Reasons = append(verdict.Reasons,
				fmt.Sprintf("debt ratio %s exceeds threshold %s", verdict.DebtRatio, maxDebtRatio))
		}
	}

	return verdict
}

// Probe implements Provider.
func (p *ComplianceProvider) Probe(ctx context.Context) error {
	if p.baseURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("compliance upstream returned status %d", resp.StatusCode)
	}
	return nil
}
