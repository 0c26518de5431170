package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dnldd/candleview/catalog"
	"github.com/dnldd/candleview/fetch"
	"github.com/dnldd/candleview/layout"
	"github.com/dnldd/candleview/render"
	"github.com/dnldd/candleview/shared"
	"github.com/dnldd/candleview/timeframe"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// renderOptions represents the options of a one-shot chart render.
type renderOptions struct {
	Instrument   string
	Timeframe    string
	Width        int
	Height       int
	Output       string
	CatalogPath  string
	DataDir      string
	CoinGeckoURL string
	UpColor      string
	DownColor    string
}

// newFetcher creates the ohlc fetcher for the provided options.
func newFetcher(opts *renderOptions, logger *zerolog.Logger) (shared.OHLCFetcher, error) {
	if opts.DataDir != "" {
		return fetch.NewFileFetcher(&fetch.FileConfig{DataDir: opts.DataDir, Logger: logger})
	}

	return fetch.NewCoinGeckoClient(&fetch.CoinGeckoConfig{
		BaseURL: opts.CoinGeckoURL,
		Timeout: time.Second * 12,
		Retry:   fetch.DefaultRetryConfig(),
		Logger:  logger,
	})
}

// renderChart fetches the series of the requested instrument and renders it as a png to w.
func renderChart(ctx context.Context, opts *renderOptions, w io.Writer, logger *zerolog.Logger) (int, error) {
	cat, err := catalog.Load(opts.CatalogPath)
	if err != nil {
		return 0, fmt.Errorf("loading catalog: %w", err)
	}

	instrument, err := cat.Instrument(opts.Instrument)
	if err != nil {
		return 0, err
	}

	resolver, err := timeframe.NewResolver(cat.Timeframes)
	if err != nil {
		return 0, fmt.Errorf("creating timeframe resolver: %w", err)
	}

	spec := resolver.Default()
	if opts.Timeframe != "" {
		spec, err = resolver.Resolve(opts.Timeframe)
		if err != nil {
			return 0, err
		}
	}

	fetcher, err := newFetcher(opts, logger)
	if err != nil {
		return 0, fmt.Errorf("creating fetcher: %w", err)
	}

	candles, err := fetcher.FetchOHLC(ctx, instrument.ID, spec)
	if err != nil {
		return 0, err
	}

	surface, err := render.NewChartSurface(opts.Width, opts.Height)
	if err != nil {
		return 0, err
	}

	style := render.DefaultStyle().WithColors(opts.UpColor, opts.DownColor)
	geo := layout.ComputeGeometry(candles, opts.Width, opts.Height)
	err = render.Render(surface, geo, candles, style)
	if err != nil {
		return 0, err
	}

	err = surface.Save(w)
	if err != nil {
		return 0, fmt.Errorf("encoding chart: %w", err)
	}

	return len(candles), nil
}

func newRenderCmd(logger *zerolog.Logger) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an instrument's candlestick chart to a png file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			n, err := renderChart(cmd.Context(), opts, &buf, logger)
			if err != nil {
				return err
			}

			err = os.WriteFile(opts.Output, buf.Bytes(), 0o644)
			if err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}

			logger.Info().Msgf("rendered %d %s candles to %s", n, opts.Instrument, opts.Output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Instrument, "instrument", "i", "bitcoin", "the instrument id")
	cmd.Flags().StringVarP(&opts.Timeframe, "timeframe", "t", "", "the timeframe token, defaults to the catalog default")
	cmd.Flags().IntVar(&opts.Width, "width", 800, "the chart width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", 400, "the chart height in pixels")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "chart.png", "the output png filepath")
	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "", "the yaml catalog filepath")
	cmd.Flags().StringVar(&opts.DataDir, "datadir", "", "the recorded ohlc data directory for offline renders")
	cmd.Flags().StringVar(&opts.CoinGeckoURL, "coingecko-url", fetch.CoinGeckoURL, "the coingecko api base url")
	cmd.Flags().StringVar(&opts.UpColor, "up-color", "", "the hex color of rising candles")
	cmd.Flags().StringVar(&opts.DownColor, "down-color", "", "the hex color of falling candles")

	return cmd
}

func newTimeframesCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "timeframes",
		Short: "List the configured timeframes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"token", "label", "days", "refetch", "stale after"})
			table.SetBorder(false)
			for _, spec := range cat.Timeframes {
				table.Append([]string{spec.Token, spec.Label, spec.Days(),
					spec.RefetchInterval.String(), spec.StaleAfter.String()})
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "the yaml catalog filepath")

	return cmd
}

func newRootCmd(logger *zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "chartctl",
		Short:        "Render and inspect candlestick charts",
		SilenceUsage: true,
	}

	root.AddCommand(newRenderCmd(logger), newTimeframesCmd())

	return root
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	err := newRootCmd(&logger).ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}
