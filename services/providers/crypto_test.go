package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market_gateway/models"
)

func cryptoUpstream(t *testing.T, handler http.HandlerFunc) *CryptoProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := &http.Client{Timeout: time.Second}
	return NewCryptoProvider(srv.URL, client, 500*time.Millisecond)
}

func TestCryptoFetchOK(t *testing.T) {
	p := cryptoUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTC-USD","name":"Bitcoin","price":64250.12,
			"change_24h":1200.5,"change_percent_24h":1.9,"volume_24h":31000000000,
			"market_cap":1260000000000}`))
	})

	res := p.Fetch(context.Background(), "BTC-USD", "")
	if res.Status != models.StatusOK {
		t.Fatalf("expected ok, got %s (%s)", res.Status, res.Error)
	}
	quote := res.Payload.(models.Quote)
	if quote.Price != 64250.12 {
		t.Fatalf("unexpected price %v", quote.Price)
	}
	if quote.Currency != "USD" {
		t.Fatalf("missing currency must default to USD, got %q", quote.Currency)
	}
}

func TestCryptoFetchNotFound(t *testing.T) {
	p := cryptoUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	res := p.Fetch(context.Background(), "NOPECOIN", "")
	if res.Status != models.StatusNotFound {
		t.Fatalf("404 must map to not-found, got %s", res.Status)
	}
}

func TestCryptoFetchEmptyBodyIsNotFound(t *testing.T) {
	p := cryptoUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	res := p.Fetch(context.Background(), "NOPECOIN", "")
	if res.Status != models.StatusNotFound {
		t.Fatalf("empty quote must map to not-found, got %s", res.Status)
	}
}

func TestCryptoFetchGarbageBody(t *testing.T) {
	p := cryptoUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})

	res := p.Fetch(context.Background(), "BTC-USD", "")
	if res.Status != models.StatusUpstreamError {
		t.Fatalf("unparseable body must map to upstream-error, got %s", res.Status)
	}
}
