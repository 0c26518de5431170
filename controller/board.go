package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dnldd/candleview/render"
	"github.com/dnldd/candleview/shared"
	"github.com/dnldd/candleview/timeframe"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// BoardConfig represents the chart board configuration.
type BoardConfig struct {
	// Instruments are the charted instruments, one controller each.
	Instruments []shared.Instrument
	// Resolver resolves timeframe tokens.
	Resolver *timeframe.Resolver
	// Fetcher fetches ohlc series.
	Fetcher shared.OHLCFetcher
	// Width is the initial surface width in pixels.
	Width int
	// Height is the initial surface height in pixels.
	Height int
	// Style is the chart drawing style.
	Style render.Style
	// JobScheduler schedules the refetch cadences, nil disables them. Cadence
	// job changes across the board's controllers are serialized.
	JobScheduler *gocron.Scheduler
	// Store persists series snapshots, optional.
	Store shared.SeriesStorer
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BoardConfig) Validate() error {
	var errs error

	if len(cfg.Instruments) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no instruments provided for chart board"))
	}
	if cfg.Resolver == nil {
		errs = errors.Join(errs, fmt.Errorf("timeframe resolver cannot be nil"))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("ohlc fetcher cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Board manages one chart controller per instrument and routes signals to them.
type Board struct {
	cfg         *BoardConfig
	controllers map[string]*Controller
	jobMtx      sync.Mutex
	wg          sync.WaitGroup
}

// NewBoard initializes a new chart board.
func NewBoard(cfg *BoardConfig) (*Board, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating board config: %w", err)
	}

	board := &Board{
		cfg:         cfg,
		controllers: make(map[string]*Controller, len(cfg.Instruments)),
	}

	for _, instrument := range cfg.Instruments {
		ccfg := &ControllerConfig{
			Instrument:   instrument,
			Resolver:     cfg.Resolver,
			Fetcher:      cfg.Fetcher,
			Width:        cfg.Width,
			Height:       cfg.Height,
			Style:        cfg.Style,
			JobScheduler: cfg.JobScheduler,
			JobMtx:       &board.jobMtx,
			Logger:       cfg.Logger,
		}
		if cfg.Store != nil {
			ccfg.PersistSeries = cfg.Store.PersistSeries
			ccfg.LoadSeries = cfg.Store.FetchSeries
		}

		ctrl, err := NewController(ccfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s controller: %w", instrument.ID, err)
		}

		board.controllers[instrument.ID] = ctrl
	}

	return board, nil
}

// Controller returns the controller of the provided instrument.
func (b *Board) Controller(instrumentID string) (*Controller, error) {
	ctrl, ok := b.controllers[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownInstrument, instrumentID)
	}

	return ctrl, nil
}

// Refresh triggers a manual refresh of the provided instrument's chart.
func (b *Board) Refresh(instrumentID string) error {
	ctrl, err := b.Controller(instrumentID)
	if err != nil {
		return err
	}

	ctrl.SendRefresh()

	return nil
}

// SetTimeframe changes the timeframe of the provided instrument's chart.
func (b *Board) SetTimeframe(instrumentID string, token string) error {
	ctrl, err := b.Controller(instrumentID)
	if err != nil {
		return err
	}

	_, err = b.cfg.Resolver.Resolve(token)
	if err != nil {
		return err
	}

	ctrl.SendTimeframe(token)

	return nil
}

// Resize resizes the provided instrument's chart surface.
func (b *Board) Resize(instrumentID string, width int, height int) error {
	ctrl, err := b.Controller(instrumentID)
	if err != nil {
		return err
	}

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid surface size %dx%d", shared.ErrRenderFailure, width, height)
	}

	ctrl.SendResize(ResizeSignal{Width: width, Height: height})

	return nil
}

// View requests the current view of the provided instrument's chart, writing the
// encoded chart to the provided writer when it is not nil.
func (b *Board) View(ctx context.Context, instrumentID string, width int, height int, w io.Writer) (shared.ViewResponse, error) {
	ctrl, err := b.Controller(instrumentID)
	if err != nil {
		return shared.ViewResponse{}, err
	}

	req := shared.NewViewRequest(width, height, w)
	ctrl.SendViewRequest(req)

	select {
	case <-ctx.Done():
		return shared.ViewResponse{}, ctx.Err()
	case resp := <-req.Response:
		return resp, resp.Err
	}
}

// Run manages the lifecycle processes of the chart board.
func (b *Board) Run(ctx context.Context) {
	for _, ctrl := range b.controllers {
		b.wg.Add(1)
		go func(ctrl *Controller) {
			defer b.wg.Done()
			ctrl.Run(ctx)
		}(ctrl)
	}

	b.wg.Wait()
}
