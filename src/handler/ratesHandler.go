package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/model"
)

type rateStore interface {
	FindByPair(ctx context.Context, pair string) (*model.ReferenceRate, error)
	Upsert(ctx context.Context, rate *model.ReferenceRate) error
}

type rateFetcher interface {
	FetchRate(ctx context.Context, pair string) (decimal.Decimal, error)
	Source() string
}

// rateMaxAge is how stale a stored rate may be before the upstream is asked
// again.
const rateMaxAge = 15 * time.Minute

// GetReferenceRateHandler serves the external reference rate for a pair,
// refreshing from the upstream API when the stored value is missing or
// stale. A stale stored value is still served if the upstream fails.
func GetReferenceRateHandler(store rateStore, fetcher rateFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair := r.URL.Query().Get("pair")
		if pair == "" {
			http.Error(w, "pair is required", http.StatusBadRequest)
			return
		}

		stored, err := store.FindByPair(r.Context(), pair)
		if err != nil {
			logger.WithError(err).Error("failed to read reference rate")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if stored != nil && time.Since(stored.FetchedAt) < rateMaxAge {
			writeJSON(w, http.StatusOK, stored)
			return
		}

		fetched, err := fetcher.FetchRate(r.Context(), pair)
		if err != nil {
			if stored != nil {
				logger.WithError(err).Warn("rate refresh failed, serving stale value")
				writeJSON(w, http.StatusOK, stored)
				return
			}

			logger.WithError(err).Error("failed to fetch reference rate")
			http.Error(w, "Reference rate unavailable", http.StatusBadGateway)
			return
		}

		rate := &model.ReferenceRate{
			Pair:      pair,
			Source:    fetcher.Source(),
			Rate:      fetched,
			FetchedAt: time.Now().UTC(),
		}

		if err := store.Upsert(r.Context(), rate); err != nil {
			// Serving the fetched value still works; only the cache write failed.
			logger.WithError(err).Warn("failed to cache reference rate")
		}

		writeJSON(w, http.StatusOK, rate)
	}
}
