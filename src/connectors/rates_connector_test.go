package connectors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(baseURL string) *RatesClient {
	return NewRatesClient(Config{
		RatesBaseURL:   baseURL,
		RatesSource:    "test-upstream",
		RequestTimeout: 5 * time.Second,
	})
}

func TestFetchRate(t *testing.T) {
	t.Run("parses the quote rate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/latest/USD" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"RUB":92.53,"EUR":0.91}}`))
		}))
		defer server.Close()

		rate, err := newTestClient(server.URL).FetchRate(context.Background(), "USD/RUB")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !rate.Equal(decimal.NewFromFloat(92.53)) {
			t.Fatalf("expected 92.53, got %s", rate)
		}
	})

	t.Run("missing quote currency", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"EUR":0.91}}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchRate(context.Background(), "USD/XYZ")
		if !errors.Is(err, ErrRateUnavailable) {
			t.Fatalf("expected ErrRateUnavailable, got %v", err)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"RUB":92.00}}`))
		}))
		defer server.Close()

		rate, err := newTestClient(server.URL).FetchRate(context.Background(), "USD/RUB")
		if err != nil {
			t.Fatalf("expected the retry to recover, got %v", err)
		}
		if !rate.Equal(decimal.NewFromFloat(92.00)) {
			t.Fatalf("expected 92.00, got %s", rate)
		}
		if atomic.LoadInt32(&calls) != 3 {
			t.Fatalf("expected 3 upstream calls, got %d", calls)
		}
	})

	t.Run("malformed pair", func(t *testing.T) {
		_, err := newTestClient("http://unused").FetchRate(context.Background(), "USDRUB")
		if err == nil {
			t.Fatal("expected an error for a malformed pair")
		}
	})
}
