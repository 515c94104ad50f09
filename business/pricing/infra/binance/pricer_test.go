package binance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oxarb/flasharb/internal/apperror"
	"github.com/oxarb/flasharb/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func newServerPricer(t *testing.T, handler http.HandlerFunc) (*Pricer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pricer, err := NewPricer(PricerConfig{
		BaseURL: server.URL,
		Symbol:  "ETHUSDT",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewPricer error = %v", err)
	}
	return pricer, server
}

func TestPricer_ReferencePrice(t *testing.T) {
	var calls atomic.Int64
	pricer, _ := newServerPricer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("symbol query = %s, want ETHUSDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3444.90000000"}`))
	})

	price, err := pricer.ReferencePrice(context.Background())
	if err != nil {
		t.Fatalf("ReferencePrice error = %v", err)
	}

	want := decimal.RequireFromString("3444.9")
	if !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}

	// Second call within the TTL is served from cache.
	if _, err := pricer.ReferencePrice(context.Background()); err != nil {
		t.Fatalf("cached ReferencePrice error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("API calls = %d, want 1 (second read cached)", calls.Load())
	}
}

func TestPricer_ReferencePrice_APIError(t *testing.T) {
	pricer, _ := newServerPricer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := pricer.ReferencePrice(context.Background())
	if err == nil {
		t.Fatal("ReferencePrice error = nil, want API failure")
	}
	if apperror.GetCode(err) != apperror.CodeReferencePriceFailed {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeReferencePriceFailed)
	}
}

func TestPricer_ReferencePrice_RejectsNonPositive(t *testing.T) {
	pricer, _ := newServerPricer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"0.00000000"}`))
	})

	_, err := pricer.ReferencePrice(context.Background())
	if err == nil {
		t.Fatal("ReferencePrice error = nil for a zero price")
	}
	if apperror.GetCode(err) != apperror.CodeReferencePriceFailed {
		t.Errorf("error code = %s, want %s", apperror.GetCode(err), apperror.CodeReferencePriceFailed)
	}
}

func TestPricer_ReferencePrice_RejectsMalformed(t *testing.T) {
	pricer, _ := newServerPricer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"not-a-number"}`))
	})

	if _, err := pricer.ReferencePrice(context.Background()); err == nil {
		t.Fatal("ReferencePrice error = nil for a malformed price")
	}
}
