package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/candleview/shared"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
)

const (
	// NasdaqProxyTicker is the ticker used as the nasdaq proxy.
	NasdaqProxyTicker = "QQQ"
)

// AggsLister lists aggregate bars for the provided parameters.
type AggsLister func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error)

// NasdaqConfig represents the configuration for the nasdaq quote client.
type NasdaqConfig struct {
	// APIKey is the polygon api key. Quotes are unavailable without one.
	APIKey string
	// Ticker is the quoted ticker.
	Ticker string
	// Location is the location hour labels are rendered in.
	Location *time.Location
	// ListAggs overrides the polygon aggregates listing.
	ListAggs AggsLister
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *NasdaqConfig) Validate() error {
	var errs error

	if cfg.Ticker == "" {
		errs = errors.Join(errs, fmt.Errorf("ticker cannot be an empty string"))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// NasdaqClient serves hourly nasdaq proxy quotes backed by polygon aggregates.
type NasdaqClient struct {
	cfg      *NasdaqConfig
	listAggs AggsLister
}

// NewNasdaqClient instantiates a new nasdaq quote client.
func NewNasdaqClient(cfg *NasdaqConfig) (*NasdaqClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating nasdaq config: %w", err)
	}

	listAggs := cfg.ListAggs
	if listAggs == nil && cfg.APIKey != "" {
		listAggs = polygonAggsLister(polygon.New(cfg.APIKey))
	}

	return &NasdaqClient{
		cfg:      cfg,
		listAggs: listAggs,
	}, nil
}

// polygonAggsLister drains the polygon aggregates iterator.
func polygonAggsLister(client *polygon.Client) AggsLister {
	return func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
		iter := client.ListAggs(ctx, params)

		var aggs []models.Agg
		for iter.Next() {
			aggs = append(aggs, iter.Item())
		}

		err := iter.Err()
		if err != nil {
			return nil, &shared.SourceUnavailableError{Err: err}
		}

		return aggs, nil
	}
}

// window returns the previous day window relative to the provided time.
func window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return end.AddDate(0, 0, -1), end
}

// FetchQuotes fetches the hourly closes of the proxy ticker over the previous day.
func (c *NasdaqClient) FetchQuotes(ctx context.Context, now time.Time) ([]shared.QuotePoint, error) {
	if c.listAggs == nil {
		return nil, fmt.Errorf("polygon api key not configured")
	}

	from, to := window(now)
	params := models.ListAggsParams{
		Ticker:     c.cfg.Ticker,
		Multiplier: 1,
		Timespan:   models.Hour,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	aggs, err := c.listAggs(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing %s aggregates: %w", c.cfg.Ticker, err)
	}

	quotes := make([]shared.QuotePoint, 0, len(aggs))
	for _, agg := range aggs {
		ts := time.Time(agg.Timestamp)
		quotes = append(quotes, shared.QuotePoint{
			T:         fmt.Sprintf("%dh", ts.In(c.cfg.Location).Hour()),
			P:         agg.Close,
			Timestamp: ts.UnixMilli(),
		})
	}

	c.cfg.Logger.Debug().Msgf("fetched %d %s quotes from %s to %s", len(quotes), c.cfg.Ticker,
		from.Format(time.DateOnly), to.Format(time.DateOnly))

	return quotes, nil
}
