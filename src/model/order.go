package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusActive = "active"
	OrderStatusClosed = "closed"
)

const (
	OperationBuy  = "buy"
	OperationSell = "sell"
)

// Order is a standing offer by a seller to trade an amount of a currency
// pair at a given price. ReservedAmount is the portion currently committed
// to pending transactions; it is a cached aggregate of transaction rows and
// must never exceed Amount.
type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SellerID       uint            `gorm:"not null;index" json:"seller_id"`
	CurrencyPair   string          `gorm:"size:10;not null" json:"currency_pair"`
	OperationType  string          `gorm:"size:10;not null" json:"operation_type"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	ReservedAmount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"reserved_amount"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Status         string          `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`

	Seller *User `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"seller,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// AvailableAmount is the ceiling for new reservations.
func (o *Order) AvailableAmount() decimal.Decimal {
	return o.Amount.Sub(o.ReservedAmount)
}

// Redact masks the seller's contact data in place.
func (o *Order) Redact() {
	if o.Seller != nil {
		redacted := o.Seller.Redacted()
		o.Seller = &redacted
	}
}

// UnitLabel names the quote currency of a pair for user-facing shortfall
// messages. Pairs outside the two the marketplace started with fall back to
// a generic label.
func UnitLabel(currencyPair string) string {
	switch currencyPair {
	case "USD/RUB":
		return "rubles"
	case "RUB/USD":
		return "dollars"
	default:
		return "units"
	}
}
