package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrTransactionNotFound is returned when the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidState is returned when a settle or cancel targets a
	// transaction that is no longer pending.
	ErrInvalidState = errors.New("transaction is not pending")

	// ErrNotParticipant is returned when the requesting user is neither
	// buyer nor seller of the transaction.
	ErrNotParticipant = errors.New("user is not a party to this transaction")

	// ErrOrderReserved is returned when deleting an order that still has a
	// reserved amount.
	ErrOrderReserved = errors.New("cannot delete an order with reserved amount")

	// ErrInvalidAmount is returned for non-positive amounts or amounts with
	// more than two fractional digits.
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")
)

// ShortfallError is the expected business outcome when a reservation does
// not fit into the order's remaining capacity. It carries what is still
// available, labeled in the pair's quote currency, for direct user display.
type ShortfallError struct {
	Available decimal.Decimal
	UnitLabel string
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf(
		"the order amount has changed, only %s %s available",
		e.Available.StringFixed(2), e.UnitLabel,
	)
}

// ProcessingError wraps an unexpected store failure. The enclosing
// transactional scope has been rolled back; the cause is logged but never
// shown to the caller.
type ProcessingError struct {
	cause error
}

func (e *ProcessingError) Error() string {
	return "an error occurred while processing the transaction"
}

func (e *ProcessingError) Unwrap() error {
	return e.cause
}

// wrapProcessing converts an unexpected failure into a ProcessingError,
// leaving already-classified errors untouched.
func wrapProcessing(err error) error {
	if err == nil {
		return nil
	}

	var shortfall *ShortfallError
	var processing *ProcessingError
	switch {
	case errors.As(err, &shortfall),
		errors.As(err, &processing),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrOrderReserved),
		errors.Is(err, ErrInvalidAmount):
		return err
	}

	return &ProcessingError{cause: err}
}
