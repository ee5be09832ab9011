package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchangeapi/src/database"
	"exchangeapi/src/model"
)

// TransactionSearchOptions enumerates every filter, sort and pagination
// parameter the transaction listing supports.
type TransactionSearchOptions struct {
	Status    *string
	MinAmount *decimal.Decimal
	// UserID restricts results to transactions where the user is buyer or
	// seller. Nil lists everything (admin view).
	UserID    *uint
	SortField string // one of amount, status, created_at, scheduled_time
	SortOrder string // asc | desc
	Page      int
	Limit     int
}

var transactionSortFields = map[string]string{
	"amount":         "amount",
	"status":         "status",
	"created_at":     "created_at",
	"scheduled_time": "scheduled_time",
}

// TransactionRepository handles read/write operations for transactions.
// Status transitions are conditional updates so race-prone paths (settle,
// cancel) cannot both win.
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new repository instance using the main read/write database.
func NewTransactionRepository() *TransactionRepository {
	logger.WithField("component", "TransactionRepository").
		Info("Creating new TransactionRepository with MainDB")

	return &TransactionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TransactionRepository) WithDB(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction into the database.
func (r *TransactionRepository) Create(
	ctx context.Context,
	transaction *model.Transaction,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "TransactionRepository",
		"op":       "Create",
		"order_id": transaction.OrderID,
		"buyer_id": transaction.BuyerID,
		"amount":   transaction.Amount,
	}).Debug("Creating new transaction")

	err := r.db.WithContext(ctx).Create(transaction).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TransactionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create transaction")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":           "TransactionRepository",
		"op":             "Create",
		"transaction_id": transaction.ID,
	}).Info("Transaction created successfully")

	return nil
}

// FindByID fetches a single transaction with its parties and order.
// Returns (nil, nil) if the transaction is not found.
func (r *TransactionRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.Transaction, error) {

	var transaction model.Transaction

	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Seller").
		Preload("Order").
		First(&transaction, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "TransactionRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Transaction not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "TransactionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch transaction by ID")

		return nil, err
	}

	return &transaction, nil
}

// Search lists transactions matching the given options and returns the
// total count before pagination.
func (r *TransactionRepository) Search(
	ctx context.Context,
	options TransactionSearchOptions,
) ([]model.Transaction, int64, error) {

	logger.WithFields(map[string]interface{}{
		"repo": "TransactionRepository",
		"op":   "Search",
	}).Debug("Searching transactions")

	query := r.db.WithContext(ctx).Model(&model.Transaction{})

	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}
	if options.MinAmount != nil {
		query = query.Where("amount >= ?", *options.MinAmount)
	}
	if options.UserID != nil {
		query = query.Where("buyer_id = ? OR seller_id = ?", *options.UserID, *options.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TransactionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to count transactions")

		return nil, 0, err
	}

	order, err := sortClause(transactionSortFields, options.SortField, options.SortOrder)
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

	var transactions []model.Transaction
	err = query.
		Preload("Buyer").
		Preload("Seller").
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&transactions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TransactionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search transactions")

		return nil, 0, err
	}

	return transactions, total, nil
}

// MarkStatusIfPending flips the transaction into a terminal status only if
// it is still pending. Returns false when the transaction is missing or
// already terminal.
func (r *TransactionRepository) MarkStatusIfPending(
	ctx context.Context,
	id uint,
	newStatus string,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":   "TransactionRepository",
		"op":     "MarkStatusIfPending",
		"id":     id,
		"status": newStatus,
	}).Debug("Updating transaction status")

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		UpdateColumn("status", newStatus)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TransactionRepository",
			"op":     "MarkStatusIfPending",
			"id":     id,
			"status": newStatus,
		}).WithError(result.Error).Error("Failed to update transaction status")

		return false, result.Error
	}

	if result.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":   "TransactionRepository",
			"op":     "MarkStatusIfPending",
			"id":     id,
			"status": newStatus,
		}).Info("Transaction status updated successfully")
	}

	return result.RowsAffected > 0, nil
}

// SumPendingAmount returns the sum of amounts over the order's pending
// transactions, i.e. what the order's reserved amount must equal.
func (r *TransactionRepository) SumPendingAmount(
	ctx context.Context,
	orderID uint,
) (decimal.Decimal, error) {

	var sum decimal.NullDecimal

	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("SUM(amount)").
		Where("order_id = ? AND status = ?", orderID, model.TransactionStatusPending).
		Scan(&sum).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TransactionRepository",
			"op":       "SumPendingAmount",
			"order_id": orderID,
		}).WithError(err).Error("Failed to sum pending transactions")

		return decimal.Zero, err
	}

	if !sum.Valid {
		return decimal.Zero, nil
	}

	return sum.Decimal, nil
}
