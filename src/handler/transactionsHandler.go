package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/auth"
	"exchangeapi/src/ledger"
	"exchangeapi/src/model"
	"exchangeapi/src/repository"
)

type transactionSearcher interface {
	Search(ctx context.Context, options repository.TransactionSearchOptions) ([]model.Transaction, int64, error)
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
}

type reservationService interface {
	Reserve(ctx context.Context, input ledger.CreateTransactionInput) (*model.Transaction, error)
	Settle(ctx context.Context, transactionID uint) (*model.Transaction, error)
	Cancel(ctx context.Context, transactionID uint, requestingUserID uint, isAdmin bool) error
	OverrideStatus(ctx context.Context, transactionID uint, newStatus string, adminUserID uint) (*model.Transaction, error)
}

// CreateTransactionPayload is the accepted shape for proposing a trade
// against an order.
type CreateTransactionPayload struct {
	OrderID       uint            `json:"order_id"`
	SellerID      uint            `json:"seller_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	ScheduledTime time.Time       `json:"scheduled_time"`
}

// CreateTransactionHandler reserves capacity on the order and records the
// pending transaction for the authenticated buyer. A shortfall comes back
// as 409 with the currently available amount in the message.
func CreateTransactionHandler(svc reservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload CreateTransactionPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid create transaction payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.OrderID == 0 {
			http.Error(w, "order_id is required", http.StatusBadRequest)
			return
		}

		transaction, err := svc.Reserve(r.Context(), ledger.CreateTransactionInput{
			OrderID:       payload.OrderID,
			BuyerID:       user.ID,
			SellerID:      payload.SellerID,
			Amount:        payload.Amount,
			ExchangeRate:  payload.ExchangeRate,
			ScheduledTime: payload.ScheduledTime,
		})
		if err != nil {
			respondLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, transaction)
	}
}

// SearchTransactionsHandler lists transactions. Admins see everything;
// everyone else sees only transactions they are party to, with counterparty
// contact data redacted.
func SearchTransactionsHandler(repo transactionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		options := repository.TransactionSearchOptions{
			SortField: r.URL.Query().Get("sortField"),
			SortOrder: r.URL.Query().Get("sortOrder"),
		}

		if status := r.URL.Query().Get("status"); status != "" {
			options.Status = &status
		}
		if amountParam := r.URL.Query().Get("minAmount"); amountParam != "" {
			amount, err := decimal.NewFromString(amountParam)
			if err != nil {
				http.Error(w, "invalid minAmount", http.StatusBadRequest)
				return
			}
			options.MinAmount = &amount
		}

		if !user.IsAdmin() {
			userID := user.ID
			options.UserID = &userID
		}

		page, limit, err := parsePagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		options.Page = page
		options.Limit = limit

		transactions, total, err := repo.Search(r.Context(), options)
		if err != nil {
			logger.WithError(err).Error("failed to search transactions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if !user.IsAdmin() {
			for i := range transactions {
				transactions[i].Redact()
			}
		}

		writeJSON(w, http.StatusOK, ListResponse{Data: transactions, Total: total})
	}
}

// GetTransactionHandler returns a single transaction with counterparty
// contact data masked for non-admins.
func GetTransactionHandler(repo transactionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		transaction, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to fetch transaction")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if transaction == nil {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}

		if !user.IsAdmin() {
			transaction.Redact()
		}

		writeJSON(w, http.StatusOK, transaction)
	}
}

// SettleTransactionHandler completes a pending transaction (admin only,
// enforced by the route chain).
func SettleTransactionHandler(svc reservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		transaction, err := svc.Settle(r.Context(), id)
		if err != nil {
			respondLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, transaction)
	}
}

// CancelTransactionHandler voids a pending transaction on behalf of one of
// its parties.
func CancelTransactionHandler(svc reservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		if err := svc.Cancel(r.Context(), id, user.ID, user.IsAdmin()); err != nil {
			respondLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Transaction canceled successfully",
		})
	}
}

// UpdateTransactionStatusPayload is the accepted shape for the admin status
// override.
type UpdateTransactionStatusPayload struct {
	Status string `json:"status"`
}

// UpdateTransactionStatusHandler is the admin override. It routes through
// the lifecycle (settle or cancel) so reservation bookkeeping always
// follows the transition; arbitrary statuses are rejected.
func UpdateTransactionStatusHandler(svc reservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var payload UpdateTransactionStatusPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Status != model.TransactionStatusDone && payload.Status != model.TransactionStatusCanceled {
			http.Error(w, "status must be done or canceled", http.StatusBadRequest)
			return
		}

		transaction, err := svc.OverrideStatus(r.Context(), id, payload.Status, user.ID)
		if err != nil {
			respondLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, transaction)
	}
}
