package shared

import (
	"context"
	"time"
)

// OHLCFetcher defines the requirements for fetching ohlc series.
type OHLCFetcher interface {
	// FetchOHLC fetches the ohlc series of the provided instrument for the provided timeframe.
	FetchOHLC(ctx context.Context, instrumentID string, timeframe TimeframeSpec) ([]Candlestick, error)
}

// SeriesStorer defines the requirements for storing series snapshots.
type SeriesStorer interface {
	// PersistSeries stores the provided series snapshot.
	PersistSeries(ctx context.Context, instrumentID string, timeframe string, candles []Candlestick) error
	// FetchSeries returns the stored series snapshot and when it was fetched.
	FetchSeries(ctx context.Context, instrumentID string, timeframe string) ([]Candlestick, time.Time, error)
}
