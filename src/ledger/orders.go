package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/model"
)

// CreateOrderInput carries a seller's new offer.
type CreateOrderInput struct {
	SellerID      uint
	CurrencyPair  string
	OperationType string
	Amount        decimal.Decimal
	Price         decimal.Decimal
}

// CreateOrder posts a new order with the marketplace price markup applied
// and nothing reserved yet.
func (s *Service) CreateOrder(
	ctx context.Context,
	input CreateOrderInput,
) (*model.Order, error) {

	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := validateAmount(input.Price); err != nil {
		return nil, err
	}

	order := &model.Order{
		SellerID:       input.SellerID,
		CurrencyPair:   input.CurrencyPair,
		OperationType:  input.OperationType,
		Amount:         input.Amount,
		ReservedAmount: decimal.Zero,
		Price:          input.Price.Add(s.cfg.PriceMarkup),
		Status:         model.OrderStatusActive,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, wrapProcessing(err)
	}

	logger.WithFields(map[string]interface{}{
		"component": "ledger",
		"op":        "CreateOrder",
		"order_id":  order.ID,
		"seller_id": order.SellerID,
		"pair":      order.CurrencyPair,
		"price":     order.Price,
	}).Info("Order created with price markup")

	return order, nil
}

// DeleteOrder removes an order, refusing while any amount is still reserved
// against it. The guard is part of the DELETE statement, so a racing
// reservation cannot slip in between check and delete.
func (s *Service) DeleteOrder(ctx context.Context, orderID uint) error {
	deleted, err := s.orders.DeleteIfUnreserved(ctx, orderID)
	if err != nil {
		return wrapProcessing(err)
	}

	if !deleted {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return wrapProcessing(err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return ErrOrderReserved
	}

	logger.WithFields(map[string]interface{}{
		"component": "ledger",
		"op":        "DeleteOrder",
		"order_id":  orderID,
	}).Info("Order deleted")

	return nil
}
