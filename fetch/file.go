package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/rs/zerolog"
)

// FileConfig represents the file backed ohlc source configuration.
type FileConfig struct {
	// DataDir is the directory holding recorded ohlc payloads, named <instrument>_<timeframe>.json
	// or <instrument>.json for recordings shared by every timeframe.
	DataDir string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *FileConfig) Validate() error {
	var errs error

	if cfg.DataDir == "" {
		errs = errors.Join(errs, fmt.Errorf("data directory cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// FileFetcher serves recorded ohlc payloads from disk, used for offline runs.
type FileFetcher struct {
	cfg    *FileConfig
	mtx    sync.Mutex
	series map[string][]shared.Candlestick
}

// Ensure the file fetcher implements the OHLCFetcher interface.
var _ shared.OHLCFetcher = (*FileFetcher)(nil)

// NewFileFetcher initializes a new file backed ohlc source.
func NewFileFetcher(cfg *FileConfig) (*FileFetcher, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating file config: %w", err)
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory '%s': %w", cfg.DataDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s' is not a directory", cfg.DataDir)
	}

	return &FileFetcher{
		cfg:    cfg,
		series: make(map[string][]shared.Candlestick),
	}, nil
}

// seriesPath returns the recorded payload path for the provided instrument and timeframe,
// falling back to the instrument's shared recording.
func (f *FileFetcher) seriesPath(instrumentID string, timeframe string) string {
	path := filepath.Join(f.cfg.DataDir, fmt.Sprintf("%s_%s.json", instrumentID, timeframe))
	_, err := os.Stat(path)
	if err != nil {
		return filepath.Join(f.cfg.DataDir, instrumentID+".json")
	}

	return path
}

// load reads and parses the recorded series, caching it for subsequent fetches.
func (f *FileFetcher) load(instrumentID string, timeframe string) ([]shared.Candlestick, error) {
	key := instrumentID + "_" + timeframe

	f.mtx.Lock()
	defer f.mtx.Unlock()

	candles, ok := f.series[key]
	if ok {
		return candles, nil
	}

	path := f.seriesPath(instrumentID, timeframe)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &shared.SourceUnavailableError{Err: fmt.Errorf("reading ohlc data from file with path '%s': %w", path, err)}
	}

	candles, err = shared.ParseOHLC(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if len(candles) > 0 {
		first := candles[0].Date()
		last := candles[len(candles)-1].Date()
		f.cfg.Logger.Info().Msgf("loaded %d %s candles covering %.2f hours, from %s, to %s", len(candles),
			key, last.Sub(first).Hours(), first.Format(time.RFC1123), last.Format(time.RFC1123))
	}

	f.series[key] = candles

	return candles, nil
}

// FetchOHLC returns the recorded series of the provided instrument, trimmed to the
// timeframe lookback measured back from the last recorded candle.
func (f *FileFetcher) FetchOHLC(ctx context.Context, instrumentID string, timeframe shared.TimeframeSpec) ([]shared.Candlestick, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	candles, err := f.load(instrumentID, timeframe.Token)
	if err != nil {
		return nil, err
	}

	if len(candles) == 0 {
		return []shared.Candlestick{}, nil
	}

	lookback := time.Duration(timeframe.LookbackDays * float64(24*time.Hour))
	cutoff := candles[len(candles)-1].Time - int64(lookback/time.Second)

	var start int
	for start < len(candles) && candles[start].Time < cutoff {
		start++
	}

	trimmed := make([]shared.Candlestick, len(candles)-start)
	copy(trimmed, candles[start:])

	return trimmed, nil
}
