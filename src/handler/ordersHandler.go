package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/auth"
	"exchangeapi/src/ledger"
	"exchangeapi/src/model"
	"exchangeapi/src/repository"
)

var (
	errInvalidPage  = errors.New("invalid page")
	errInvalidLimit = errors.New("invalid limit")
)

type orderSearcher interface {
	Search(ctx context.Context, options repository.OrderSearchOptions) ([]model.Order, int64, error)
	FindByID(ctx context.Context, id uint) (*model.Order, error)
}

type orderWriter interface {
	CreateOrder(ctx context.Context, input ledger.CreateOrderInput) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uint) error
}

// CreateOrderPayload is the accepted shape for posting a new order.
type CreateOrderPayload struct {
	CurrencyPair  string          `json:"currency_pair"`
	OperationType string          `json:"operation_type"`
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
}

// CreateOrderHandler posts a new order for the authenticated seller. The
// marketplace price markup is applied inside the ledger.
func CreateOrderHandler(svc orderWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload CreateOrderPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid create order payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.CurrencyPair == "" || payload.OperationType == "" {
			http.Error(w, "currency_pair and operation_type are required", http.StatusBadRequest)
			return
		}

		order, err := svc.CreateOrder(r.Context(), ledger.CreateOrderInput{
			SellerID:      user.ID,
			CurrencyPair:  payload.CurrencyPair,
			OperationType: payload.OperationType,
			Amount:        payload.Amount,
			Price:         payload.Price,
		})
		if err != nil {
			respondLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

// SearchOrdersHandler lists orders with filtering, sorting and pagination.
// Non-admin callers receive redacted seller contact data.
func SearchOrdersHandler(repo orderSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		options := repository.OrderSearchOptions{
			SortField: r.URL.Query().Get("sortField"),
			SortOrder: r.URL.Query().Get("sortOrder"),
		}

		if pair := r.URL.Query().Get("currencyPair"); pair != "" {
			options.CurrencyPair = &pair
		}
		if status := r.URL.Query().Get("status"); status != "" {
			options.Status = &status
		}
		if sellerParam := r.URL.Query().Get("sellerId"); sellerParam != "" {
			id, err := strconv.ParseUint(sellerParam, 10, 64)
			if err != nil {
				http.Error(w, "invalid sellerId", http.StatusBadRequest)
				return
			}
			sellerID := uint(id)
			options.SellerID = &sellerID
		}

		page, limit, err := parsePagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		options.Page = page
		options.Limit = limit

		orders, total, err := repo.Search(r.Context(), options)
		if err != nil {
			logger.WithError(err).Error("failed to search orders")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if !user.IsAdmin() {
			for i := range orders {
				orders[i].Redact()
			}
		}

		writeJSON(w, http.StatusOK, ListResponse{Data: orders, Total: total})
	}
}

// GetOrderHandler returns a single order; seller contact data is redacted
// for non-admins.
func GetOrderHandler(repo orderSearcher) http.HandlerFunc {
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

		order, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to fetch order")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if order == nil {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}

		if !user.IsAdmin() {
			order.Redact()
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// DeleteOrderHandler removes an order unless capacity is still reserved
// against it.
func DeleteOrderHandler(svc orderWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		if err := svc.DeleteOrder(r.Context(), id); err != nil {
			respondLedgerError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func parsePagination(r *http.Request) (page, limit int, err error) {
	page = 1
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		parsed, err := strconv.Atoi(pageParam)
		if err != nil || parsed <= 0 {
			return 0, 0, errInvalidPage
		}
		page = parsed
	}

	limit = 10
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			return 0, 0, errInvalidLimit
		}
		limit = parsed
	}

	return page, limit, nil
}
