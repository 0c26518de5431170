package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/dnldd/candleview/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		return
	}

	level, _ := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chartsCfg := service.ChartsConfig{
		Address:         cfg.Address,
		CatalogPath:     cfg.CatalogPath,
		Instruments:     cfg.Instruments,
		CoinGeckoURL:    cfg.CoinGeckoURL,
		CoinGeckoAPIKey: cfg.CoinGeckoAPIKey,
		PolygonAPIKey:   cfg.PolygonAPIKey,
		DataDir:         cfg.DataDir,
		DBEndpoint:      cfg.DBEndpoint,
		DBUser:          cfg.DBUser,
		DBPass:          cfg.DBPass,
		Width:           cfg.Width,
		Height:          cfg.Height,
		UpColor:         cfg.UpColor,
		DownColor:       cfg.DownColor,
		Cancel:          cancel,
	}
	charts, err := service.NewCharts(ctx, &chartsCfg)
	if err != nil {
		log.Error().Msgf("creating charts service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	charts.Run(ctx)
}
