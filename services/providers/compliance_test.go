package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market_gateway/models"
)

func builtinCompliance(t *testing.T) *ComplianceProvider {
	t.Helper()
	return NewComplianceProvider("", &http.Client{Timeout: time.Second}, 500*time.Millisecond)
}

func TestComplianceBuiltinCompliant(t *testing.T) {
	p := builtinCompliance(t)

	res := p.Fetch(context.Background(), "2222.SR", "")
	if res.Status != models.StatusOK {
		t.Fatalf("expected ok, got %s (%s)", res.Status, res.Error)
	}
	verdict := res.Payload.(models.ComplianceVerdict)
	if !verdict.Compliant {
		t.Fatalf("Aramco must screen compliant, reasons=%v", verdict.Reasons)
	}
	if verdict.DebtRatio.IsZero() {
		t.Fatal("debt ratio must be computed for a leveraged company")
	}
}

func TestComplianceBuiltinUnknownSymbol(t *testing.T) {
	p := builtinCompliance(t)

	res := p.Fetch(context.Background(), "9999.SR", "")
	if res.Status != models.StatusNotFound {
		t.Fatalf("unknown symbol must map to not-found, got %s", res.Status)
	}
}

func TestComplianceBuiltinProbeAlwaysHealthy(t *testing.T) {
	if err := builtinCompliance(t).Probe(context.Background()); err != nil {
		t.Fatalf("builtin table has no upstream to fail: %v", err)
	}
}

func complianceUpstream(t *testing.T, handler http.HandlerFunc) *ComplianceProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewComplianceProvider(srv.URL, &http.Client{Timeout: time.Second}, 500*time.Millisecond)
}

func TestComplianceProhibitedSector(t *testing.T) {
	p := complianceUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(screeningRecord{
			Symbol: "CASINO", Name: "Casino Corp", Sector: "Gambling",
			TotalDebt: 0, MarketCap: 1_000_000_000,
		})
	})

	res := p.Fetch(context.Background(), "CASINO", "")
	if res.Status != models.StatusOK {
		t.Fatalf("expected ok, got %s (%s)", res.Status, res.Error)
	}
	verdict := res.Payload.(models.ComplianceVerdict)
	if verdict.Compliant {
		t.Fatal("prohibited sector must fail screening")
	}
	if len(verdict.Reasons) == 0 {
		t.Fatal("failed screening must carry a reason")
	}
}

func TestComplianceDebtRatioThreshold(t *testing.T) {
	p := complianceUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(screeningRecord{
			Symbol: "LEVERED", Name: "Levered Inc", Sector: "Industrials",
			TotalDebt: 33, MarketCap: 100,
		})
	})

	res := p.Fetch(context.Background(), "LEVERED", "")
	verdict := res.Payload.(models.ComplianceVerdict)
	if verdict.Compliant {
		t.Fatalf("ratio %s at the 0.33 threshold must fail", verdict.DebtRatio)
	}
}

func TestComplianceDebtRatioJustBelowThreshold(t *testing.T) {
	p := complianceUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(screeningRecord{
			Symbol: "SOUND", Name: "Sound Co", Sector: "Industrials",
			TotalDebt: 32, MarketCap: 100,
		})
	})

	res := p.Fetch(context.Background(), "SOUND", "")
	verdict := res.Payload.(models.ComplianceVerdict)
	if !verdict.Compliant {
		t.Fatalf("ratio %s below threshold must pass, reasons=%v", verdict.DebtRatio, verdict.Reasons)
	}
}

func TestComplianceUpstreamNotFound(t *testing.T) {
	p := complianceUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	res := p.Fetch(context.Background(), "MISSING", "")
	if res.Status != models.StatusNotFound {
		t.Fatalf("404 must map to not-found, got %s", res.Status)
	}
}
