package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending  = "pending"
	TransactionStatusDone     = "done"
	TransactionStatusCanceled = "canceled"
)

// Transaction is a proposed or settled trade against an order's reserved
// capacity. Rows are only ever inserted together with a successful
// reservation on the order; pending is the sole non-terminal status.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"size:36;uniqueIndex" json:"reference"`
	BuyerID      uint            `gorm:"not null;index" json:"buyer_id"`
	SellerID     uint            `gorm:"not null;index" json:"seller_id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	ExchangeRate decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"exchange_rate"`
	Amount       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status       string          `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`

	Buyer  *User  `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller *User  `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Order  *Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsTerminal reports whether the transaction can still change state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusDone || t.Status == TransactionStatusCanceled
}

// Involves reports whether the given user is a party to this transaction.
func (t *Transaction) Involves(userID uint) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Redact masks both parties' contact data in place.
func (t *Transaction) Redact() {
	if t.Buyer != nil {
		redacted := t.Buyer.Redacted()
		t.Buyer = &redacted
	}
	if t.Seller != nil {
		redacted := t.Seller.Redacted()
		t.Seller = &redacted
	}
	if t.Order != nil {
		t.Order.Redact()
	}
}
