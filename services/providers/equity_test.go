package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market_gateway/models"
)

func equityUpstream(t *testing.T, handler http.HandlerFunc) (*EquityProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := &http.Client{Timeout: time.Second}
	return NewEquityProvider(srv.URL, client, 500*time.Millisecond), srv
}

func TestEquityFetchOK(t *testing.T) {
	p, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "AAPL" {
			t.Errorf("expected symbols=AAPL, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteResponse":{"result":[{
			"symbol":"AAPL","shortName":"Apple Inc.","currency":"USD",
			"regularMarketPrice":190.5,"regularMarketChange":1.2,
			"regularMarketChangePercent":0.63,"regularMarketVolume":52000000,
			"regularMarketPreviousClose":189.3}]}}`))
	})

	res := p.Fetch(context.Background(), "AAPL", "")
	if res.Status != models.StatusOK {
		t.Fatalf("expected ok, got %s (%s)", res.Status, res.Error)
	}
	quote := res.Payload.(models.Quote)
	if quote.Price != 190.5 || quote.Name != "Apple Inc." {
		t.Fatalf("unexpected payload: %+v", quote)
	}
	if res.Category != models.CategoryEquity {
		t.Fatalf("expected equity category, got %s", res.Category)
	}
}

func TestEquityFetchNotFound(t *testing.T) {
	p, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
	})

	res := p.Fetch(context.Background(), "UNKNOWNX", "")
	if res.Status != models.StatusNotFound {
		t.Fatalf("empty result set must map to not-found, got %s", res.Status)
	}
}

func TestEquityFetchUpstreamError(t *testing.T) {
	p, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	res := p.Fetch(context.Background(), "AAPL", "")
	if res.Status != models.StatusUpstreamError {
		t.Fatalf("5xx must map to upstream-error, got %s", res.Status)
	}
}

func TestEquityFetchTimeout(t *testing.T) {
	p, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	})

	start := time.Now()
	res := p.Fetch(context.Background(), "AAPL", "")
	if res.Status != models.StatusTimeout {
		t.Fatalf("slow upstream must map to timeout, got %s", res.Status)
	}
	if time.Since(start) > 1500*time.Millisecond {
		t.Fatal("adapter did not enforce its own timeout")
	}
}

func TestEquityProbe(t *testing.T) {
	p, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("probe against healthy upstream failed: %v", err)
	}

	down, _ := equityUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if err := down.Probe(context.Background()); err == nil {
		t.Fatal("probe against 5xx upstream must fail")
	}
}
