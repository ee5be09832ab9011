package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/ledger"
)

// ListResponse is the envelope for paginated listings.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// respondLedgerError maps the ledger error taxonomy onto HTTP statuses.
// Shortfalls and state conflicts are expected outcomes and carry their
// message verbatim; processing errors stay opaque.
func respondLedgerError(w http.ResponseWriter, err error) {
	var shortfall *ledger.ShortfallError

	switch {
	case errors.As(err, &shortfall):
		http.Error(w, shortfall.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrOrderNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrOrderReserved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrNotParticipant):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.WithError(err).Error("ledger operation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
