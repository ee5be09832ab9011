package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RatesBaseURL   string        `envconfig:"RATES_BASE_URL" default:"https://open.er-api.com/v6"`
	RatesSource    string        `envconfig:"RATES_SOURCE" default:"open.er-api.com"`
	RequestTimeout time.Duration `envconfig:"RATES_REQUEST_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
