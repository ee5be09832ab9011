// REST client for the external reference-rate API.
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	// Default retry configuration
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxWait   = 4 * time.Second
)

var ErrRateUnavailable = errors.New("reference rate unavailable for pair")

// ratesResponse is the wire shape of the upstream latest-rates endpoint.
type ratesResponse struct {
	Result string             `json:"result"`
	Base   string             `json:"base_code"`
	Rates  map[string]float64 `json:"rates"`
}

// RatesClient fetches fiat reference rates from an external API.
type RatesClient struct {
	baseURL string
	source  string
	http    *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	return r.StatusCode() == 429 || r.StatusCode() >= 500
}

// NewRatesClient builds a client with retry against the configured
// upstream.
func NewRatesClient(cfg Config) *RatesClient {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(defaultRetryAttempts).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(isRetryableResp)

	return &RatesClient{
		baseURL: strings.TrimRight(cfg.RatesBaseURL, "/"),
		source:  cfg.RatesSource,
		http:    client,
	}
}

// Source names the upstream for persistence.
func (c *RatesClient) Source() string {
	return c.source
}

// FetchRate returns the current reference rate for a "BASE/QUOTE" pair.
func (c *RatesClient) FetchRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	base, quote, err := splitPair(pair)
	if err != nil {
		return decimal.Zero, err
	}

	var payload ratesResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(c.baseURL + "/latest/" + base)

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "RatesClient",
			"op":        "FetchRate",
			"pair":      pair,
		}).WithError(err).Error("Failed to fetch reference rates")

		return decimal.Zero, err
	}

	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("rates API returned status %d", resp.StatusCode())
	}

	rate, ok := payload.Rates[quote]
	if !ok {
		return decimal.Zero, ErrRateUnavailable
	}

	logger.WithFields(map[string]interface{}{
		"component": "RatesClient",
		"op":        "FetchRate",
		"pair":      pair,
		"rate":      rate,
	}).Debug("Reference rate fetched")

	return decimal.NewFromFloat(rate), nil
}

func splitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed currency pair %q", pair)
	}
	return parts[0], parts[1], nil
}
