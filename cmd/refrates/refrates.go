package refrates

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"

	"exchangeapi/src/model"
	"exchangeapi/src/repository"
)

// RefRates pulls spot tickers for the configured crypto pairs and stores
// them as reference rates, next to the fiat rates the REST connector
// maintains.
type RefRates struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (r *RefRates) Start() error {
	r.Config = GetConfig()

	r.exchange = r.newBinanceInstance()

	return r.fetchAndSave()
}

func (*RefRates) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (r *RefRates) fetchAndSave() error {
	repo := repository.NewRateRepository().WithDB(r.DB)

	for _, pair := range r.Config.Pairs {
		currencyPair := goex.NewCurrencyPair2(strings.ReplaceAll(pair, "/", "_"))

		ticker, err := r.exchange.GetTicker(currencyPair)
		if err != nil {
			r.Log.WithError(err).WithField("pair", pair).Error("fetchAndSave, GetTicker")
			return err
		}

		rate := &model.ReferenceRate{
			Pair:      pair,
			Source:    r.Config.Source,
			Rate:      decimal.NewFromFloat(ticker.Last),
			FetchedAt: time.Now().UTC(),
		}

		if err := repo.Upsert(context.Background(), rate); err != nil {
			r.Log.WithError(err).WithField("pair", pair).Error("fetchAndSave, Upsert")
			return err
		}

		r.Log.WithFields(logger.Fields{
			"pair": pair,
			"rate": rate.Rate,
		}).Info("reference rate stored")
	}

	return nil
}
