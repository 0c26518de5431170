package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/candleview/shared"
	"github.com/rs/zerolog"
)

const (
	// CoinGeckoURL is the default coingecko api base url.
	CoinGeckoURL = "https://api.coingecko.com/api/v3"
	// defaultTimeout is the default http request timeout.
	defaultTimeout = time.Second * 12
	// maxDumpSize is the maximum number of payload bytes dumped for diagnostics.
	maxDumpSize = 512
)

// CoinGeckoConfig represents the configuration for the coingecko client.
type CoinGeckoConfig struct {
	// BaseURL is the coingecko api base url.
	BaseURL string
	// APIKey is the optional coingecko demo api key.
	APIKey string
	// Timeout bounds the wait of a single request.
	Timeout time.Duration
	// Retry is the retry policy for source unavailable failures.
	Retry RetryConfig
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *CoinGeckoConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("base url cannot be an empty string"))
	}
	if cfg.Timeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout must be positive"))
	}
	err := cfg.Retry.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// CoinGeckoClient represents the coingecko ohlc api client.
type CoinGeckoClient struct {
	cfg   *CoinGeckoConfig
	httpc *http.Client
}

// Ensure the coingecko client implements the OHLCFetcher interface.
var _ shared.OHLCFetcher = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient instantiates a new coingecko client.
func NewCoinGeckoClient(cfg *CoinGeckoConfig) (*CoinGeckoClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating coingecko config: %w", err)
	}

	return &CoinGeckoClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *CoinGeckoClient) formURL(path string, params string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(c.cfg.BaseURL, "/"))
	b.WriteString(path)
	b.WriteString("?")
	b.WriteString(params)

	return b.String()
}

// FetchOHLC fetches the ohlc series of the provided instrument for the provided timeframe.
func (c *CoinGeckoClient) FetchOHLC(ctx context.Context, instrumentID string, timeframe shared.TimeframeSpec) ([]shared.Candlestick, error) {
	params := url.Values{}
	params.Add("vs_currency", "usd")
	params.Add("days", timeframe.Days())

	formedURL := c.formURL("/coins/"+url.PathEscape(instrumentID)+"/ohlc", params.Encode())

	var headers map[string]string
	if c.cfg.APIKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.cfg.APIKey}
	}

	var candles []shared.Candlestick
	err := retry(ctx, c.cfg.Retry, c.cfg.Logger, func() error {
		body, err := get(ctx, c.httpc, formedURL, headers)
		if err != nil {
			return err
		}

		candles, err = shared.ParseOHLC(body)
		if err != nil {
			c.cfg.Logger.Debug().Msgf("unexpected ohlc payload for %s: %s", instrumentID, dump(body))
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s ohlc (%s): %w", instrumentID, timeframe.Token, err)
	}

	return candles, nil
}

// dump renders a bounded diagnostic dump of the provided payload.
func dump(body []byte) string {
	if len(body) > maxDumpSize {
		body = body[:maxDumpSize]
	}

	return spew.Sdump(string(body))
}
