package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// sweeper is what the loop needs from the ledger.
type sweeper interface {
	SweepOpenOrders(ctx context.Context) (int, error)
}

// StartSweepLoop periodically recomputes the reserved amount of every open
// order. The reservation core already recomputes after each cancellation;
// the sweep is the operational backstop that heals drift from anything
// unforeseen (crashes between writes, manual data surgery).
func StartSweepLoop(ctx context.Context, service sweeper) error {
	config := GetConfig()

	ticker := time.NewTicker(config.SweepPeriod)
	defer ticker.Stop()

	logger.WithField("period", config.SweepPeriod).Info("Reservation consistency sweep started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reservation consistency sweep stopped")
			return nil
		case <-ticker.C:
			runSweep(ctx, service)
		}
	}
}

func runSweep(ctx context.Context, service sweeper) {
	started := time.Now()

	visited, err := service.SweepOpenOrders(ctx)
	if err != nil {
		logger.WithError(err).Error("Consistency sweep failed")
		return
	}

	logger.WithFields(map[string]interface{}{
		"orders_visited": visited,
		"took":           time.Since(started),
	}).Info("Consistency sweep completed")
}
