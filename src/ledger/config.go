package ledger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	// PriceMarkup is the spread the marketplace adds on top of the seller's
	// asking price at order creation.
	PriceMarkup decimal.Decimal `envconfig:"PRICE_MARKUP" default:"0.5"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
