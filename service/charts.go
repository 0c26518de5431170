package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/candleview/api"
	"github.com/dnldd/candleview/catalog"
	"github.com/dnldd/candleview/controller"
	"github.com/dnldd/candleview/database"
	"github.com/dnldd/candleview/fetch"
	"github.com/dnldd/candleview/render"
	"github.com/dnldd/candleview/shared"
	"github.com/dnldd/candleview/timeframe"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// ChartsConfig represents the configuration struct for the charts service.
type ChartsConfig struct {
	// Address is the api listening address.
	Address string
	// CatalogPath is the filepath to the yaml catalog, empty uses the built-in catalog.
	CatalogPath string
	// Instruments restricts the charted instruments, empty charts the whole catalog.
	Instruments []string
	// CoinGeckoURL is the coingecko api base url.
	CoinGeckoURL string
	// CoinGeckoAPIKey is the optional coingecko api key.
	CoinGeckoAPIKey string
	// PolygonAPIKey is the optional polygon api key.
	PolygonAPIKey string
	// DataDir is the directory of recorded ohlc payloads, set for offline runs.
	DataDir string
	// DBEndpoint is the optional rqlite endpoint for series snapshots.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Width is the default chart width in pixels.
	Width int
	// Height is the default chart height in pixels.
	Height int
	// UpColor is the hex color of rising candles.
	UpColor string
	// DownColor is the hex color of falling candles.
	DownColor string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ChartsConfig) Validate() error {
	var errs error

	if cfg.Address == "" {
		errs = errors.Join(errs, fmt.Errorf("address cannot be an empty string"))
	}
	if cfg.DataDir == "" && cfg.CoinGeckoURL == "" {
		errs = errors.Join(errs, fmt.Errorf("coingecko url cannot be an empty string"))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = errors.Join(errs, fmt.Errorf("chart size must be positive, got %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Charts represents the candlestick chart service.
type Charts struct {
	cfg          *ChartsConfig
	board        *controller.Board
	server       *api.Server
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// selectInstruments returns the catalog instruments with the provided ids, or the
// whole catalog when none are provided.
func selectInstruments(cat *catalog.Catalog, ids []string) ([]shared.Instrument, error) {
	if len(ids) == 0 {
		return cat.Instruments, nil
	}

	instruments := make([]shared.Instrument, 0, len(ids))
	for _, id := range ids {
		instrument, err := cat.Instrument(id)
		if err != nil {
			return nil, err
		}

		instruments = append(instruments, instrument)
	}

	return instruments, nil
}

// NewCharts initializes a new charts service.
func NewCharts(ctx context.Context, cfg *ChartsConfig) (*Charts, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating charts config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "charts").Logger()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	instruments, err := selectInstruments(cat, cfg.Instruments)
	if err != nil {
		return nil, fmt.Errorf("selecting instruments: %w", err)
	}

	resolver, err := timeframe.NewResolver(cat.Timeframes)
	if err != nil {
		return nil, fmt.Errorf("creating timeframe resolver: %w", err)
	}

	var fetcher shared.OHLCFetcher
	switch {
	case cfg.DataDir != "":
		fileLogger := logger.With().Str("component", "filefetcher").Logger()
		fetcher, err = fetch.NewFileFetcher(&fetch.FileConfig{
			DataDir: cfg.DataDir,
			Logger:  &fileLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating file fetcher: %w", err)
		}
	default:
		coinGeckoLogger := logger.With().Str("component", "coingecko").Logger()
		fetcher, err = fetch.NewCoinGeckoClient(&fetch.CoinGeckoConfig{
			BaseURL: cfg.CoinGeckoURL,
			APIKey:  cfg.CoinGeckoAPIKey,
			Timeout: time.Second * 12,
			Retry:   fetch.DefaultRetryConfig(),
			Logger:  &coinGeckoLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating coingecko client: %w", err)
		}
	}

	var store shared.SeriesStorer
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		store, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
	}

	jobScheduler := gocron.NewScheduler(time.UTC)

	boardLogger := logger.With().Str("component", "board").Logger()
	board, err := controller.NewBoard(&controller.BoardConfig{
		Instruments:  instruments,
		Resolver:     resolver,
		Fetcher:      fetcher,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Style:        render.DefaultStyle().WithColors(cfg.UpColor, cfg.DownColor),
		JobScheduler: jobScheduler,
		Store:        store,
		Logger:       &boardLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chart board: %w", err)
	}

	newsLogger := logger.With().Str("component", "news").Logger()
	news, err := fetch.NewNewsClient(&fetch.NewsConfig{
		CoinStatsURL:  fetch.CoinStatsNewsURL,
		PolygonURL:    fetch.PolygonNewsURL,
		PolygonAPIKey: cfg.PolygonAPIKey,
		Limit:         10,
		Timeout:       time.Second * 12,
		Retry:         fetch.DefaultRetryConfig(),
		Logger:        &newsLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating news client: %w", err)
	}

	nasdaqLogger := logger.With().Str("component", "nasdaq").Logger()
	nasdaq, err := fetch.NewNasdaqClient(&fetch.NasdaqConfig{
		APIKey:   cfg.PolygonAPIKey,
		Ticker:   fetch.NasdaqProxyTicker,
		Location: time.UTC,
		Logger:   &nasdaqLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating nasdaq client: %w", err)
	}

	priceURL := cfg.CoinGeckoURL
	if priceURL == "" {
		priceURL = fetch.CoinGeckoURL
	}

	pricesLogger := logger.With().Str("component", "prices").Logger()
	prices, err := fetch.NewPriceClient(&fetch.PriceConfig{
		BaseURL:     priceURL,
		APIKey:      cfg.CoinGeckoAPIKey,
		Instruments: instruments,
		MaxAge:      time.Second * 30,
		Timeout:     time.Second * 12,
		Retry:       fetch.DefaultRetryConfig(),
		Logger:      &pricesLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating price client: %w", err)
	}

	serverLogger := logger.With().Str("component", "api").Logger()
	server, err := api.NewServer(&api.ServerConfig{
		Address:     cfg.Address,
		Board:       board,
		News:        news,
		Quotes:      nasdaq,
		Prices:      prices,
		Instruments: instruments,
		Timeframes:  resolver.Specs(),
		Logger:      &serverLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}

	return &Charts{
		cfg:          cfg,
		board:        board,
		server:       server,
		jobScheduler: jobScheduler,
		logger:       &logger,
	}, nil
}

// Run handles the lifecycle processes of the charts service.
func (c *Charts) Run(ctx context.Context) {
	c.jobScheduler.StartAsync()
	defer c.jobScheduler.Stop()

	c.wg.Add(2)

	go func() {
		c.board.Run(ctx)
		c.wg.Done()
	}()

	go func() {
		err := c.server.Run(ctx)
		if err != nil {
			c.logger.Error().Msgf("running api server: %v", err)
			c.cfg.Cancel()
		}
		c.wg.Done()
	}()

	c.wg.Wait()
}
