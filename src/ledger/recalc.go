package ledger

import (
	"context"

	logger "github.com/sirupsen/logrus"
)

// Recompute re-derives the order's reserved amount from its pending
// transactions. The order row is locked before the sum, so reservations
// that committed while the lock was contended are always counted.
// Idempotent; safe to call from the consistency sweep.
func (s *Service) Recompute(ctx context.Context, orderID uint) error {
	err := s.orders.RecomputeReserved(ctx, orderID)
	if err != nil {
		return wrapProcessing(err)
	}
	return nil
}

// SweepOpenOrders recomputes the reserved amount of every order still
// accepting reservations, logging any drift it found before repairing it.
// Returns how many orders were visited.
func (s *Service) SweepOpenOrders(ctx context.Context) (int, error) {
	ids, err := s.orders.ListOpenIDs(ctx)
	if err != nil {
		return 0, wrapProcessing(err)
	}

	for _, id := range ids {
		order, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return 0, wrapProcessing(err)
		}
		if order == nil {
			continue
		}

		expected, err := s.transactions.SumPendingAmount(ctx, id)
		if err != nil {
			return 0, wrapProcessing(err)
		}

		if !order.ReservedAmount.Equal(expected) {
			logger.WithFields(map[string]interface{}{
				"component": "ledger",
				"op":        "SweepOpenOrders",
				"order_id":  id,
				"stored":    order.ReservedAmount,
				"expected":  expected,
			}).Warn("Reserved amount drift detected")
		}

		if err := s.Recompute(ctx, id); err != nil {
			logger.WithFields(map[string]interface{}{
				"component": "ledger",
				"op":        "SweepOpenOrders",
				"order_id":  id,
			}).WithError(err).Error("Failed to recompute order during sweep")

			return 0, err
		}
	}

	return len(ids), nil
}
