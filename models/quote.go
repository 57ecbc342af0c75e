package models

import "github.com/shopspring/decimal"

// Quote is the normalized price payload shared by the equity, crypto and
// metal providers.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open,omitempty"`
	High          float64 `json:"high,omitempty"`
	Low           float64 `json:"low,omitempty"`
	PrevClose     float64 `json:"prev_close,omitempty"`
	Volume        float64 `json:"volume,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// ComplianceVerdict is the screening payload. The debt ratio is kept as a
// decimal so threshold comparisons are exact.
type ComplianceVerdict struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name,omitempty"`
	Compliant    bool            `json:"compliant"`
	Sector       string          `json:"sector,omitempty"`
	BusinessType string          `json:"business_type,omitempty"`
	DebtRatio    decimal.Decimal `json:"debt_ratio"`
	Reasons      []string        `json:"reasons,omitempty"`
}
