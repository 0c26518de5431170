package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/candleview/layout"
	"github.com/dnldd/candleview/render"
	"github.com/dnldd/candleview/shared"
	"github.com/dnldd/candleview/timeframe"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// persistTimeout bounds the wait of a series snapshot write.
	persistTimeout = time.Second * 10
)

// ControllerConfig represents the chart controller configuration.
type ControllerConfig struct {
	// Instrument is the charted instrument.
	Instrument shared.Instrument
	// Resolver resolves timeframe tokens.
	Resolver *timeframe.Resolver
	// Fetcher fetches ohlc series.
	Fetcher shared.OHLCFetcher
	// Timeframe is the initial timeframe token, empty selects the resolver default.
	Timeframe string
	// Width is the initial surface width in pixels.
	Width int
	// Height is the initial surface height in pixels.
	Height int
	// Style is the chart drawing style.
	Style render.Style
	// JobScheduler schedules the refetch cadence, nil disables it.
	JobScheduler *gocron.Scheduler
	// JobMtx guards cadence job changes on a scheduler shared with other
	// controllers. A private mutex is used when nil.
	JobMtx *sync.Mutex
	// PersistSeries stores a successfully fetched series, optional.
	PersistSeries func(ctx context.Context, instrumentID string, timeframe string, candles []shared.Candlestick) error
	// LoadSeries loads a stored series snapshot and when it was fetched, optional.
	LoadSeries func(ctx context.Context, instrumentID string, timeframe string) ([]shared.Candlestick, time.Time, error)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ControllerConfig) Validate() error {
	var errs error

	if cfg.Instrument.ID == "" {
		errs = errors.Join(errs, fmt.Errorf("instrument id cannot be an empty string"))
	}
	if cfg.Resolver == nil {
		errs = errors.Join(errs, fmt.Errorf("timeframe resolver cannot be nil"))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("ohlc fetcher cannot be nil"))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = errors.Join(errs, fmt.Errorf("surface size must be positive, got %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// ResizeSignal represents a surface resize.
type ResizeSignal struct {
	Width  int
	Height int
}

// fetchResult represents the outcome of a fetch.
type fetchResult struct {
	token     uint64
	timeframe string
	candles   []shared.Candlestick
	fetchedAt time.Time
	err       error
}

// cachedSeries represents a fetched series retained per timeframe.
type cachedSeries struct {
	candles   []shared.Candlestick
	fetchedAt time.Time
}

// Controller coordinates fetching, layout and rendering of one instrument chart.
// The surface is only ever touched from the Run loop.
type Controller struct {
	cfg     *ControllerConfig
	id      string
	spec    shared.TimeframeSpec
	state   shared.State
	series  []shared.Candlestick
	lastErr string
	// renderFailed marks a failed state caused by drawing rather than fetching.
	renderFailed bool
	geo          layout.Geometry
	surface *render.ChartSurface
	cache   map[string]cachedSeries
	job     *gocron.Job

	requestToken *atomic.Uint64
	fetches      *atomic.Uint64
	closed       *atomic.Bool
	fetchCancel  context.CancelFunc

	refreshSignals   chan struct{}
	timeframeSignals chan string
	resizeSignals    chan ResizeSignal
	viewRequests     chan *shared.ViewRequest
	results          chan fetchResult
}

// NewController initializes a new chart controller.
func NewController(cfg *ControllerConfig) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating controller config: %w", err)
	}

	spec := cfg.Resolver.Default()
	if cfg.Timeframe != "" {
		spec, err = cfg.Resolver.Resolve(cfg.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("resolving initial timeframe: %w", err)
		}
	}

	surface, err := render.NewChartSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("creating chart surface: %w", err)
	}

	id := uuid.New().String()
	logger := cfg.Logger.With().Str("instrument", cfg.Instrument.ID).Str("controller", id).Logger()
	cfg.Logger = &logger
	if cfg.JobMtx == nil {
		cfg.JobMtx = new(sync.Mutex)
	}

	return &Controller{
		cfg:              cfg,
		id:               id,
		spec:             spec,
		state:            shared.Idle,
		surface:          surface,
		geo:              layout.ComputeGeometry(nil, cfg.Width, cfg.Height),
		cache:            make(map[string]cachedSeries),
		requestToken:     atomic.NewUint64(0),
		fetches:          atomic.NewUint64(0),
		closed:           atomic.NewBool(false),
		refreshSignals:   make(chan struct{}, bufferSize),
		timeframeSignals: make(chan string, bufferSize),
		resizeSignals:    make(chan ResizeSignal, bufferSize),
		viewRequests:     make(chan *shared.ViewRequest, bufferSize),
		results:          make(chan fetchResult, bufferSize),
	}, nil
}

// ID returns the controller instance id.
func (c *Controller) ID() string {
	return c.id
}

// Instrument returns the charted instrument.
func (c *Controller) Instrument() shared.Instrument {
	return c.cfg.Instrument
}

// Fetches returns the number of fetches initiated.
func (c *Controller) Fetches() uint64 {
	return c.fetches.Load()
}

// SendRefresh relays a manual refresh for processing.
func (c *Controller) SendRefresh() {
	select {
	case c.refreshSignals <- struct{}{}:
		// do nothing.
	default:
		c.cfg.Logger.Error().Msgf("refresh signal channel at capacity: %d/%d",
			len(c.refreshSignals), bufferSize)
	}
}

// SendTimeframe relays the provided timeframe change for processing.
func (c *Controller) SendTimeframe(token string) {
	select {
	case c.timeframeSignals <- token:
		// do nothing.
	default:
		c.cfg.Logger.Error().Msgf("timeframe signal channel at capacity: %d/%d",
			len(c.timeframeSignals), bufferSize)
	}
}

// SendResize relays the provided surface resize for processing.
func (c *Controller) SendResize(signal ResizeSignal) {
	select {
	case c.resizeSignals <- signal:
		// do nothing.
	default:
		c.cfg.Logger.Error().Msgf("resize signal channel at capacity: %d/%d",
			len(c.resizeSignals), bufferSize)
	}
}

// SendViewRequest relays the provided view request for processing.
func (c *Controller) SendViewRequest(req *shared.ViewRequest) {
	select {
	case c.viewRequests <- req:
		// do nothing.
	default:
		c.cfg.Logger.Error().Msgf("view request channel at capacity: %d/%d",
			len(c.viewRequests), bufferSize)
		req.Response <- shared.ViewResponse{
			Instrument: c.cfg.Instrument.ID,
			Err:        fmt.Errorf("%s controller is busy", c.cfg.Instrument.ID),
		}
	}
}

// fetch initiates an asynchronous fetch for the current timeframe, superseding
// any fetch in flight.
func (c *Controller) fetch(ctx context.Context) {
	if c.fetchCancel != nil {
		c.fetchCancel()
	}

	fctx, cancel := context.WithCancel(ctx)
	c.fetchCancel = cancel

	token := c.requestToken.Inc()
	c.fetches.Inc()
	c.setState(shared.Loading, c.lastErr)
	spec := c.spec

	c.cfg.Logger.Debug().Msgf("fetching %s series (request %d)", spec.Token, token)

	go func() {
		candles, err := c.cfg.Fetcher.FetchOHLC(fctx, c.cfg.Instrument.ID, spec)
		result := fetchResult{
			token:     token,
			timeframe: spec.Token,
			candles:   candles,
			fetchedAt: time.Now(),
			err:       err,
		}

		select {
		case c.results <- result:
		case <-fctx.Done():
		}
	}()
}

// setState transitions the controller to the provided state and error message.
func (c *Controller) setState(state shared.State, msg string) {
	c.state = state
	c.lastErr = msg
	c.renderFailed = false
}

// draw recomputes the geometry and renders the current series onto the surface.
// A successful draw clears a failure left by a previous draw.
func (c *Controller) draw() {
	c.geo = layout.ComputeGeometry(c.series, c.surface.Width(), c.surface.Height())
	err := render.Render(c.surface, c.geo, c.series, c.cfg.Style)
	if err != nil {
		c.setState(shared.Failed, err.Error())
		c.renderFailed = true
		c.cfg.Logger.Error().Msgf("rendering %s chart: %v", c.cfg.Instrument.ID, err)
		return
	}

	if c.renderFailed {
		state := shared.Idle
		if len(c.series) > 0 {
			state = shared.Ready
		}
		c.setState(state, "")
	}
}

// handleResult processes the provided fetch result.
func (c *Controller) handleResult(ctx context.Context, result fetchResult) {
	if result.token != c.requestToken.Load() || result.timeframe != c.spec.Token {
		c.cfg.Logger.Debug().Msgf("dropping superseded %s result (request %d)", result.timeframe, result.token)
		return
	}

	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}

	if result.err != nil {
		c.setState(shared.Failed, result.err.Error())
		c.cfg.Logger.Error().Msgf("fetching %s %s series: %v", c.cfg.Instrument.ID, result.timeframe, result.err)
		c.draw()
		return
	}

	candles := make([]shared.Candlestick, len(result.candles))
	for idx := range result.candles {
		candles[idx] = result.candles[idx]
		candles[idx].Normalize()
	}

	c.series = candles
	c.cache[result.timeframe] = cachedSeries{candles: candles, fetchedAt: result.fetchedAt}
	c.setState(shared.Ready, "")
	c.draw()

	if c.cfg.PersistSeries != nil {
		go c.persist(ctx, result.timeframe, candles)
	}
}

// persist hands the provided series to the snapshot store.
func (c *Controller) persist(ctx context.Context, timeframe string, candles []shared.Candlestick) {
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	err := c.cfg.PersistSeries(pctx, c.cfg.Instrument.ID, timeframe, candles)
	if err != nil {
		c.cfg.Logger.Error().Msgf("persisting %s %s series: %v", c.cfg.Instrument.ID, timeframe, err)
	}
}

// handleTimeframe processes the provided timeframe change.
func (c *Controller) handleTimeframe(ctx context.Context, token string) {
	spec, err := c.cfg.Resolver.Resolve(token)
	if err != nil {
		c.cfg.Logger.Error().Msgf("changing timeframe: %v", err)
		return
	}

	if spec.Token == c.spec.Token {
		return
	}

	// Invalidate the in-flight fetch of the previous timeframe.
	c.requestToken.Inc()
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}

	c.spec = spec
	c.schedule()

	cached, ok := c.cache[spec.Token]
	if ok && time.Since(cached.fetchedAt) < spec.StaleAfter {
		c.cfg.Logger.Debug().Msgf("reusing cached %s series", spec.Token)
		c.series = cached.candles
		c.setState(shared.Ready, "")
		c.draw()
		return
	}

	c.series = nil
	c.lastErr = ""
	c.fetch(ctx)
	c.draw()
}

// handleResize processes the provided resize signal.
func (c *Controller) handleResize(signal ResizeSignal) {
	if signal.Width == c.surface.Width() && signal.Height == c.surface.Height() {
		return
	}

	surface, err := render.NewChartSurface(signal.Width, signal.Height)
	if err != nil {
		c.cfg.Logger.Error().Msgf("resizing %s chart: %v", c.cfg.Instrument.ID, err)
		return
	}

	c.surface = surface
	c.draw()
}

// handleViewRequest processes the provided view request.
func (c *Controller) handleViewRequest(req *shared.ViewRequest) {
	if req.Width > 0 && req.Height > 0 {
		c.handleResize(ResizeSignal{Width: req.Width, Height: req.Height})
	}

	resp := c.snapshot()
	if req.Writer != nil {
		err := c.surface.Save(req.Writer)
		if err != nil {
			resp.Err = fmt.Errorf("%w: encoding chart: %v", shared.ErrRenderFailure, err)
		}
	}

	req.Response <- resp
}

// snapshot returns the current view state.
func (c *Controller) snapshot() shared.ViewResponse {
	return shared.ViewResponse{
		Instrument: c.cfg.Instrument.ID,
		Timeframe:  c.spec.Token,
		State:      c.state,
		Width:      c.surface.Width(),
		Height:     c.surface.Height(),
		Error:      c.lastErr,
		Candles:    len(c.series),
	}
}

// schedule replaces the refetch cadence job with one at the current timeframe's interval.
func (c *Controller) schedule() {
	if c.cfg.JobScheduler == nil {
		return
	}

	c.cfg.JobMtx.Lock()
	defer c.cfg.JobMtx.Unlock()

	if c.job != nil {
		c.cfg.JobScheduler.RemoveByReference(c.job)
		c.job = nil
	}

	interval := c.spec.RefetchInterval
	if interval <= 0 {
		interval = shared.DefaultRefetchInterval
	}

	job, err := c.cfg.JobScheduler.Every(interval).WaitForSchedule().Do(func() {
		if !c.closed.Load() {
			c.SendRefresh()
		}
	})
	if err != nil {
		c.cfg.Logger.Error().Msgf("scheduling %s refetch cadence: %v", c.cfg.Instrument.ID, err)
		return
	}

	c.job = job
}

// seed loads the stored snapshot of the current timeframe, if any.
func (c *Controller) seed(ctx context.Context) bool {
	if c.cfg.LoadSeries == nil {
		return false
	}

	candles, fetchedAt, err := c.cfg.LoadSeries(ctx, c.cfg.Instrument.ID, c.spec.Token)
	if err != nil {
		c.cfg.Logger.Debug().Msgf("loading %s %s snapshot: %v", c.cfg.Instrument.ID, c.spec.Token, err)
		return false
	}
	if len(candles) == 0 {
		return false
	}

	c.cache[c.spec.Token] = cachedSeries{candles: candles, fetchedAt: fetchedAt}
	c.series = candles
	c.setState(shared.Ready, "")
	c.draw()

	return time.Since(fetchedAt) < c.spec.StaleAfter
}

// teardown releases the controller's resources. Late fetch results are ignored.
func (c *Controller) teardown() {
	c.closed.Store(true)
	c.requestToken.Inc()

	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}

	if c.cfg.JobScheduler != nil && c.job != nil {
		c.cfg.JobMtx.Lock()
		c.cfg.JobScheduler.RemoveByReference(c.job)
		c.cfg.JobMtx.Unlock()
		c.job = nil
	}

	c.cfg.Logger.Info().Msgf("%s chart controller terminated", c.cfg.Instrument.ID)
}

// Run manages the lifecycle processes of the chart controller.
func (c *Controller) Run(ctx context.Context) {
	defer c.teardown()

	c.draw()
	c.schedule()
	if !c.seed(ctx) {
		c.fetch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.refreshSignals:
			c.lastErr = ""
			c.fetch(ctx)
		case token := <-c.timeframeSignals:
			c.handleTimeframe(ctx, token)
		case signal := <-c.resizeSignals:
			c.handleResize(signal)
		case req := <-c.viewRequests:
			c.handleViewRequest(req)
		case result := <-c.results:
			c.handleResult(ctx, result)
		}
	}
}
