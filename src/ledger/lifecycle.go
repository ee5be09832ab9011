package ledger

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"exchangeapi/src/model"
)

// Settle completes a pending transaction: its status becomes done and the
// order's total and reserved amounts both shrink by the transaction amount.
// The order decrement is guarded the same way as the reserve path, so a
// concurrently modified order rolls the whole settlement back instead of
// going negative.
func (s *Service) Settle(
	ctx context.Context,
	transactionID uint,
) (*model.Transaction, error) {

	logger.WithFields(map[string]interface{}{
		"component":      "ledger",
		"op":             "Settle",
		"transaction_id": transactionID,
	}).Debug("Settling transaction")

	var settled *model.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transactions := s.transactions.WithDB(tx)
		orders := s.orders.WithDB(tx)

		transaction, err := transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if transaction == nil {
			return ErrTransactionNotFound
		}

		flipped, err := transactions.MarkStatusIfPending(ctx, transactionID, model.TransactionStatusDone)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrInvalidState
		}

		applied, err := orders.ApplySettlement(ctx, transaction.OrderID, transaction.Amount)
		if err != nil {
			return err
		}
		if !applied {
			order, err := orders.FindByID(ctx, transaction.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}

			// The order no longer covers this transaction. That means the
			// bookkeeping drifted; refuse the settlement rather than commit
			// a negative counter.
			return errors.New("order no longer covers the settlement amount")
		}

		transaction.Status = model.TransactionStatusDone
		settled = transaction
		return nil
	})

	if err != nil {
		return nil, wrapProcessing(err)
	}

	logger.WithFields(map[string]interface{}{
		"component":      "ledger",
		"op":             "Settle",
		"transaction_id": transactionID,
		"order_id":       settled.OrderID,
		"amount":         settled.Amount,
	}).Info("Transaction settled")

	return settled, nil
}

// Cancel voids a pending transaction on behalf of one of its parties and
// repairs the order's reserved amount by recomputing it from the remaining
// pending transactions, all in one transactional scope. Admins may cancel
// on anyone's behalf.
func (s *Service) Cancel(
	ctx context.Context,
	transactionID uint,
	requestingUserID uint,
	isAdmin bool,
) error {

	logger.WithFields(map[string]interface{}{
		"component":      "ledger",
		"op":             "Cancel",
		"transaction_id": transactionID,
		"user_id":        requestingUserID,
	}).Debug("Canceling transaction")

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transactions := s.transactions.WithDB(tx)
		orders := s.orders.WithDB(tx)

		transaction, err := transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if transaction == nil {
			return ErrTransactionNotFound
		}

		if !isAdmin && !transaction.Involves(requestingUserID) {
			return ErrNotParticipant
		}

		flipped, err := transactions.MarkStatusIfPending(ctx, transactionID, model.TransactionStatusCanceled)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrInvalidState
		}

		// Recompute instead of decrementing: the counter is re-derived from
		// the surviving pending transactions, so any earlier drift heals
		// here as well.
		return orders.RecomputeReserved(ctx, transaction.OrderID)
	})

	if err != nil {
		return wrapProcessing(err)
	}

	logger.WithFields(map[string]interface{}{
		"component":      "ledger",
		"op":             "Cancel",
		"transaction_id": transactionID,
		"user_id":        requestingUserID,
	}).Info("Transaction canceled")

	return nil
}

// OverrideStatus is the administrative status transition. There is no raw
// status setter: "done" settles and "canceled" cancels, so reservation
// bookkeeping always follows the transition.
func (s *Service) OverrideStatus(
	ctx context.Context,
	transactionID uint,
	newStatus string,
	adminUserID uint,
) (*model.Transaction, error) {

	switch newStatus {
	case model.TransactionStatusDone:
		return s.Settle(ctx, transactionID)
	case model.TransactionStatusCanceled:
		if err := s.Cancel(ctx, transactionID, adminUserID, true); err != nil {
			return nil, err
		}
		return s.transactions.FindByID(ctx, transactionID)
	default:
		return nil, ErrInvalidState
	}
}
