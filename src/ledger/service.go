// Package ledger is the reservation/settlement core of the marketplace.
// It owns the invariant that an order's reserved amount never exceeds its
// total amount and always equals the sum of its pending transactions.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"exchangeapi/src/model"
	"exchangeapi/src/repository"
)

// Service drives every mutation of orders and transactions. Query surfaces
// go straight to the repositories; everything that touches reservation
// bookkeeping must come through here.
type Service struct {
	db           *gorm.DB
	cfg          Config
	orders       *repository.OrderRepository
	transactions *repository.TransactionRepository
}

// NewService creates the ledger service on top of the given database
// handle.
func NewService(db *gorm.DB, cfg Config) *Service {
	return &Service{
		db:           db,
		cfg:          cfg,
		orders:       repository.NewOrderRepository().WithDB(db),
		transactions: repository.NewTransactionRepository().WithDB(db),
	}
}

// CreateTransactionInput carries everything needed to reserve capacity on
// an order and record the resulting transaction.
type CreateTransactionInput struct {
	OrderID       uint
	BuyerID       uint
	SellerID      uint
	Amount        decimal.Decimal
	ExchangeRate  decimal.Decimal
	ScheduledTime time.Time
}

// Reserve atomically reserves capacity on the order and inserts the pending
// transaction, both in one transactional scope. The capacity check is a
// WHERE-clause guard on the update, so concurrent reservations against the
// same order can never jointly over-reserve.
//
// Returns the created transaction, a *ShortfallError with the currently
// available amount when capacity does not suffice, ErrOrderNotFound, or a
// *ProcessingError after rollback on any unexpected failure.
func (s *Service) Reserve(
	ctx context.Context,
	input CreateTransactionInput,
) (*model.Transaction, error) {

	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component": "ledger",
		"op":        "Reserve",
		"order_id":  input.OrderID,
		"buyer_id":  input.BuyerID,
		"amount":    input.Amount,
	}).Debug("Reserving capacity on order")

	var created *model.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithDB(tx)
		transactions := s.transactions.WithDB(tx)

		reserved, err := orders.ReserveAmount(ctx, input.OrderID, input.Amount)
		if err != nil {
			return err
		}

		if !reserved {
			// The guard rejected the update. Re-read to tell a missing
			// order apart from an exhausted one, and report the amount
			// still available right now.
			order, err := orders.FindByID(ctx, input.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}

			return &ShortfallError{
				Available: order.AvailableAmount(),
				UnitLabel: model.UnitLabel(order.CurrencyPair),
			}
		}

		transaction := &model.Transaction{
			Reference:     uuid.NewString(),
			BuyerID:       input.BuyerID,
			SellerID:      input.SellerID,
			OrderID:       input.OrderID,
			ExchangeRate:  input.ExchangeRate,
			Amount:        input.Amount,
			ScheduledTime: input.ScheduledTime,
			Status:        model.TransactionStatusPending,
		}

		// Any failure here rolls the reservation back with us.
		if err := transactions.Create(ctx, transaction); err != nil {
			return err
		}

		created = transaction
		return nil
	})

	if err != nil {
		err = wrapProcessing(err)

		var processing *ProcessingError
		if errors.As(err, &processing) {
			logger.WithFields(map[string]interface{}{
				"component": "ledger",
				"op":        "Reserve",
				"order_id":  input.OrderID,
			}).WithError(processing.Unwrap()).Error("Reservation rolled back")
		}

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":      "ledger",
		"op":             "Reserve",
		"order_id":       input.OrderID,
		"transaction_id": created.ID,
		"reference":      created.Reference,
	}).Info("Reservation committed")

	return created, nil
}

// validateAmount rejects amounts before the store is touched: they must be
// strictly positive and representable in two fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
