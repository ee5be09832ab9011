package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exchangeapi/src/database"
	"exchangeapi/src/model"
)

// OrderSearchOptions enumerates every filter, sort and pagination parameter
// the order listing supports. Untyped filter maps are deliberately not
// accepted here.
type OrderSearchOptions struct {
	CurrencyPair *string
	Status       *string
	SellerID     *uint
	SortField    string // one of price, amount, created_at, status, currency_pair
	SortOrder    string // asc | desc
	Page         int
	Limit        int
}

var orderSortFields = map[string]string{
	"price":         "price",
	"amount":        "amount",
	"created_at":    "created_at",
	"status":        "status",
	"currency_pair": "currency_pair",
}

// OrderRepository handles read/write operations for marketplace orders,
// including the conditional updates the reservation core depends on.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order into the database.
// The given order will be updated with the generated ID and timestamps.
func (r *OrderRepository) Create(
	ctx context.Context,
	order *model.Order,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Create",
		"pair":   order.CurrencyPair,
		"amount": order.Amount,
		"price":  order.Price,
	}).Debug("Creating new order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create order")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Create",
		"order_id": order.ID,
	}).Info("Order created successfully")

	return nil
}

// FindByID fetches a single order by its primary ID.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.Order, error) {

	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("Seller").
		First(&order, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "OrderRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Order not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch order by ID")

		return nil, err
	}

	return &order, nil
}

// Search lists orders matching the given options and returns the total
// count before pagination, so callers can build paged responses.
func (r *OrderRepository) Search(
	ctx context.Context,
	options OrderSearchOptions,
) ([]model.Order, int64, error) {

	logger.WithFields(map[string]interface{}{
		"repo": "OrderRepository",
		"op":   "Search",
	}).Debug("Searching orders")

	query := r.db.WithContext(ctx).Model(&model.Order{})

	if options.CurrencyPair != nil {
		query = query.Where("currency_pair = ?", *options.CurrencyPair)
	}
	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}
	if options.SellerID != nil {
		query = query.Where("seller_id = ?", *options.SellerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to count orders")

		return nil, 0, err
	}

	order, err := sortClause(orderSortFields, options.SortField, options.SortOrder)
	if err != nil {
		return nil, 0, err
	}

	page := options.Page
	if page <= 0 {
		page = 1
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 10
	}

	var orders []model.Order
	err = query.
		Preload("Seller").
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search orders")

		return nil, 0, err
	}

	return orders, total, nil
}

// ReserveAmount atomically increases the order's reserved amount, but only
// if the requested amount still fits into the available capacity at commit
// time. The guard lives in the WHERE clause so two concurrent reservations
// can never both pass a stale check; the bound amount stays inside an
// arithmetic expression so the comparison is numeric on every dialect.
// Returns false when the update matched no row (order missing or capacity
// exhausted).
func (r *OrderRepository) ReserveAmount(
	ctx context.Context,
	orderID uint,
	amount decimal.Decimal,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "ReserveAmount",
		"order_id": orderID,
		"amount":   amount,
	}).Debug("Reserving amount on order")

	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND amount >= reserved_amount + ?", orderID, amount).
		UpdateColumn("reserved_amount", gorm.Expr("reserved_amount + ?", amount))

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "ReserveAmount",
			"order_id": orderID,
		}).WithError(result.Error).Error("Failed to reserve amount")

		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// ApplySettlement atomically decrements both the order's total and reserved
// amounts by the settled transaction amount. The WHERE guard mirrors the
// reserve path so a concurrent modification can never drive either counter
// negative. Returns false when the guard rejected the update.
func (r *OrderRepository) ApplySettlement(
	ctx context.Context,
	orderID uint,
	amount decimal.Decimal,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "ApplySettlement",
		"order_id": orderID,
		"amount":   amount,
	}).Debug("Applying settlement to order")

	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND reserved_amount >= ? AND amount >= ?", orderID, amount, amount).
		UpdateColumns(map[string]interface{}{
			"amount":          gorm.Expr("amount - ?", amount),
			"reserved_amount": gorm.Expr("reserved_amount - ?", amount),
		})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "ApplySettlement",
			"order_id": orderID,
		}).WithError(result.Error).Error("Failed to apply settlement")

		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// RecomputeReserved overwrites the order's reserved amount with the sum of
// its pending transaction amounts. The order row is locked in a statement
// of its own first, so the sum that follows sees every transaction commit
// that raced against the lock. Idempotent; a missing order is a no-op.
func (r *OrderRepository) RecomputeReserved(
	ctx context.Context,
	orderID uint,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "RecomputeReserved",
		"order_id": orderID,
	}).Debug("Recomputing reserved amount")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Model(&model.Order{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		return tx.Model(&model.Order{}).
			Where("id = ?", orderID).
			UpdateColumn("reserved_amount", gorm.Expr(
				"COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.order_id = orders.id AND t.status = ?), 0)",
				model.TransactionStatusPending,
			)).Error
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "RecomputeReserved",
			"order_id": orderID,
		}).WithError(err).Error("Failed to recompute reserved amount")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "RecomputeReserved",
		"order_id": orderID,
	}).Info("Reserved amount recomputed")

	return nil
}

// DeleteIfUnreserved deletes the order only while nothing is reserved
// against it. Returns false when the guard rejected the delete (order
// missing or reserved_amount > 0).
func (r *OrderRepository) DeleteIfUnreserved(
	ctx context.Context,
	orderID uint,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "DeleteIfUnreserved",
		"order_id": orderID,
	}).Debug("Deleting order")

	result := r.db.WithContext(ctx).
		Where("id = ? AND reserved_amount = 0", orderID).
		Delete(&model.Order{})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "DeleteIfUnreserved",
			"order_id": orderID,
		}).WithError(result.Error).Error("Failed to delete order")

		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// ListOpenIDs returns the IDs of every order still accepting reservations.
// Used by the consistency sweep.
func (r *OrderRepository) ListOpenIDs(ctx context.Context) ([]uint, error) {
	var ids []uint

	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("status = ?", model.OrderStatusActive).
		Pluck("id", &ids).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "ListOpenIDs",
		}).WithError(err).Error("Failed to list open orders")

		return nil, err
	}

	return ids, nil
}

// sortClause validates a requested sort against a column whitelist and
// returns the ORDER BY expression. An empty field falls back to newest
// first.
func sortClause(allowed map[string]string, field, order string) (string, error) {
	if field == "" {
		return "created_at DESC, id DESC", nil
	}

	column, ok := allowed[field]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", field)
	}

	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	return column + " " + direction, nil
}
