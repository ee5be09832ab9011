package refrates

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Pairs  []string `envconfig:"REFRATES_PAIRS" default:"BTC/USDT,ETH/USDT"`
	Source string   `envconfig:"REFRATES_SOURCE" default:"binance"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
