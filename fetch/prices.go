package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// defaultPriceMaxAge is the age below which fetched prices are served from cache.
	defaultPriceMaxAge = time.Second * 30
)

// PriceConfig represents the configuration for the price client.
type PriceConfig struct {
	// BaseURL is the coingecko api base url.
	BaseURL string
	// APIKey is the optional coingecko demo api key.
	APIKey string
	// Instruments are the instruments priced, in display order.
	Instruments []shared.Instrument
	// MaxAge is the age below which fetched prices are reused, zero disables reuse.
	MaxAge time.Duration
	// Timeout bounds the wait of a single request.
	Timeout time.Duration
	// Retry is the retry policy for source unavailable failures.
	Retry RetryConfig
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *PriceConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("base url cannot be an empty string"))
	}
	if len(cfg.Instruments) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no instruments provided for pricing"))
	}
	if cfg.MaxAge < 0 {
		errs = errors.Join(errs, fmt.Errorf("max age cannot be negative"))
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

// PriceClient fetches the latest usd prices and 24 hour changes of the catalog.
type PriceClient struct {
	cfg   *PriceConfig
	httpc *http.Client

	mtx       sync.Mutex
	quotes    []shared.PriceQuote
	fetchedAt time.Time
}

// NewPriceClient instantiates a new price client.
func NewPriceClient(cfg *PriceConfig) (*PriceClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating price config: %w", err)
	}

	return &PriceClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// priceURL returns the simple price url for the configured instruments.
func (c *PriceClient) priceURL() string {
	ids := make([]string, len(c.cfg.Instruments))
	for idx := range c.cfg.Instruments {
		ids[idx] = c.cfg.Instruments[idx].ID
	}

	params := url.Values{}
	params.Add("vs_currencies", "usd")
	params.Add("ids", strings.Join(ids, ","))
	params.Add("include_24hr_change", "true")

	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/simple/price?" + params.Encode()
}

// FetchPrices fetches the latest prices, reusing the previous result while it is
// younger than the configured max age.
func (c *PriceClient) FetchPrices(ctx context.Context) ([]shared.PriceQuote, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.quotes != nil && time.Since(c.fetchedAt) < c.cfg.MaxAge {
		return c.quotes, nil
	}

	var headers map[string]string
	if c.cfg.APIKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.cfg.APIKey}
	}

	formedURL := c.priceURL()

	var quotes []shared.PriceQuote
	err := retry(ctx, c.cfg.Retry, c.cfg.Logger, func() error {
		body, err := get(ctx, c.httpc, formedURL, headers)
		if err != nil {
			return err
		}

		quotes, err = ParsePrices(body, c.cfg.Instruments)
		if err != nil {
			c.cfg.Logger.Debug().Msgf("unexpected price payload: %s", dump(body))
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}

	c.quotes = quotes
	c.fetchedAt = time.Now()

	return quotes, nil
}

// ParsePrices parses a coingecko simple price payload ({id:{usd, usd_24h_change}})
// into quotes ordered as the provided instruments. Instruments absent from the
// payload or without a usd price are skipped, a missing change reads as zero.
func ParsePrices(data []byte, instruments []shared.Instrument) ([]shared.PriceQuote, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: price payload is not valid json", shared.ErrMalformedResponse)
	}

	payload := gjson.ParseBytes(data)
	if !payload.IsObject() {
		return nil, fmt.Errorf("%w: expected a price object", shared.ErrMalformedResponse)
	}

	quotes := make([]shared.PriceQuote, 0, len(instruments))
	for _, instrument := range instruments {
		entry := payload.Get(gjson.Escape(instrument.ID))
		price := entry.Get("usd")
		if price.Type != gjson.Number {
			continue
		}

		quotes = append(quotes, shared.PriceQuote{
			ID:        instrument.ID,
			Name:      instrument.Name,
			Symbol:    instrument.Symbol,
			Price:     price.Float(),
			Change24h: entry.Get("usd_24h_change").Float(),
		})
	}

	return quotes, nil
}
