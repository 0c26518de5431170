package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
)

func TestNasdaqFetchQuotes(t *testing.T) {
	logger := zerolog.Nop()
	now := time.Date(2025, 8, 16, 9, 30, 0, 0, time.UTC)
	bar := time.Date(2025, 8, 15, 14, 0, 0, 0, time.UTC)

	var got *models.ListAggsParams
	client, err := NewNasdaqClient(&NasdaqConfig{
		Ticker:   NasdaqProxyTicker,
		Location: time.UTC,
		ListAggs: func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
			got = params
			return []models.Agg{
				{Close: 560.25, Timestamp: models.Millis(bar)},
				{Close: 561.5, Timestamp: models.Millis(bar.Add(time.Hour))},
			}, nil
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	// Ensure the previous day hourly window is requested and mapped to quote points.
	quotes, err := client.FetchQuotes(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, got.Ticker, "QQQ")
	assert.Equal(t, got.Timespan, models.Hour)
	assert.Equal(t, time.Time(got.From), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Time(got.To), time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, quotes, []shared.QuotePoint{
		{T: "14h", P: 560.25, Timestamp: bar.UnixMilli()},
		{T: "15h", P: 561.5, Timestamp: bar.Add(time.Hour).UnixMilli()},
	})
}

func TestNasdaqFetchQuotesErrors(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure quotes are unavailable without a polygon key.
	client, err := NewNasdaqClient(&NasdaqConfig{
		Ticker:   NasdaqProxyTicker,
		Location: time.UTC,
		Logger:   &logger,
	})
	assert.NoError(t, err)

	_, err = client.FetchQuotes(context.Background(), time.Now())
	assert.Error(t, err)

	// Ensure listing failures are surfaced.
	client, err = NewNasdaqClient(&NasdaqConfig{
		Ticker:   NasdaqProxyTicker,
		Location: time.UTC,
		ListAggs: func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
			return nil, &shared.SourceUnavailableError{StatusCode: 403}
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	_, err = client.FetchQuotes(context.Background(), time.Now())
	var sue *shared.SourceUnavailableError
	assert.True(t, errors.As(err, &sue))

	// Ensure config validation failures are surfaced.
	_, err = NewNasdaqClient(&NasdaqConfig{Logger: &logger})
	assert.Error(t, err)
}
