package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceRate is an externally sourced market rate for a currency pair,
// shown next to marketplace prices. Upserted by the rates loader on the
// (pair, source) unique index.
type ReferenceRate struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Pair      string          `gorm:"size:20;not null;index:idx_pair_source,unique" json:"pair"`
	Source    string          `gorm:"size:50;not null;index:idx_pair_source,unique" json:"source"`
	Rate      decimal.Decimal `gorm:"type:numeric(18,8);not null" json:"rate"`
	FetchedAt time.Time       `gorm:"not null" json:"fetched_at"`
}

func (ReferenceRate) TableName() string {
	return "reference_rates"
}
