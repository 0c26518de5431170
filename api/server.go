package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/rs/zerolog"
)

const (
	// shutdownTimeout bounds the wait for in-flight requests on shutdown.
	shutdownTimeout = time.Second * 5
	// viewTimeout bounds the wait for a chart view.
	viewTimeout = time.Second * 10
	// maxSurfaceSize is the largest accepted chart dimension in pixels.
	maxSurfaceSize = 4096
)

// ChartBoard defines the chart operations served over http.
type ChartBoard interface {
	// View writes the current chart of the provided instrument to w.
	View(ctx context.Context, instrumentID string, width int, height int, w io.Writer) (shared.ViewResponse, error)
	// Refresh triggers a manual refresh of the provided instrument's chart.
	Refresh(instrumentID string) error
	// SetTimeframe changes the timeframe of the provided instrument's chart.
	SetTimeframe(instrumentID string, token string) error
}

// NewsFetcher defines the requirements for fetching news.
type NewsFetcher interface {
	// FetchNews fetches the latest news items.
	FetchNews(ctx context.Context) ([]shared.NewsItem, error)
}

// QuoteFetcher defines the requirements for fetching intraday quotes.
type QuoteFetcher interface {
	// FetchQuotes fetches the hourly quotes of the previous day relative to now.
	FetchQuotes(ctx context.Context, now time.Time) ([]shared.QuotePoint, error)
}

// PriceFetcher defines the requirements for fetching instrument prices.
type PriceFetcher interface {
	// FetchPrices fetches the latest usd prices and 24 hour changes.
	FetchPrices(ctx context.Context) ([]shared.PriceQuote, error)
}

// ServerConfig represents the http api configuration.
type ServerConfig struct {
	// Address is the listening address.
	Address string
	// Board serves the charts.
	Board ChartBoard
	// News serves the news feed.
	News NewsFetcher
	// Quotes serves the nasdaq quotes.
	Quotes QuoteFetcher
	// Prices serves the instrument prices.
	Prices PriceFetcher
	// Instruments is the instrument catalog.
	Instruments []shared.Instrument
	// Timeframes are the configured timeframes.
	Timeframes []shared.TimeframeSpec
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ServerConfig) Validate() error {
	var errs error

	if cfg.Address == "" {
		errs = errors.Join(errs, fmt.Errorf("address cannot be an empty string"))
	}
	if cfg.Board == nil {
		errs = errors.Join(errs, fmt.Errorf("chart board cannot be nil"))
	}
	if cfg.News == nil {
		errs = errors.Join(errs, fmt.Errorf("news fetcher cannot be nil"))
	}
	if cfg.Quotes == nil {
		errs = errors.Join(errs, fmt.Errorf("quote fetcher cannot be nil"))
	}
	if cfg.Prices == nil {
		errs = errors.Join(errs, fmt.Errorf("price fetcher cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Server represents the http api.
type Server struct {
	cfg     *ServerConfig
	router  *mux.Router
	decoder *schema.Decoder
}

// NewServer initializes a new http api.
func NewServer(cfg *ServerConfig) (*Server, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		decoder: schema.NewDecoder(),
	}
	s.decoder.IgnoreUnknownKeys(true)

	s.router.Use(s.cors)
	s.router.HandleFunc("/api/nasdaq-data", s.handleNasdaqData).Methods(http.MethodGet)
	s.router.HandleFunc("/api/news", s.handleNews).Methods(http.MethodGet)
	s.router.HandleFunc("/api/prices", s.handlePrices).Methods(http.MethodGet)
	s.router.HandleFunc("/api/instruments", s.handleInstruments).Methods(http.MethodGet)
	s.router.HandleFunc("/api/timeframes", s.handleTimeframes).Methods(http.MethodGet)
	s.router.HandleFunc("/api/charts/{instrument}", s.handleChart).Methods(http.MethodGet)
	s.router.HandleFunc("/api/charts/{instrument}/state", s.handleChartState).Methods(http.MethodGet)
	s.router.HandleFunc("/api/charts/{instrument}/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/api/charts/{instrument}/timeframe/{token}", s.handleTimeframe).Methods(http.MethodPost)
	s.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(s.handlePreflight)

	return s, nil
}

// Handler returns the http handler of the api.
func (s *Server) Handler() http.Handler {
	return s.router
}

// cors sets the cross origin headers on every response.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes the provided value as a json response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.cfg.Logger.Error().Msgf("encoding response: %v", err)
	}
}

// writeError writes the provided error as a json error response.
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus maps the provided error to an http status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnknownInstrument):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUnknownTimeframe):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleNasdaqData(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.cfg.Quotes.FetchQuotes(r.Context(), time.Now())
	if err != nil {
		s.cfg.Logger.Error().Msgf("fetching nasdaq data: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]shared.QuotePoint{"data": quotes})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	news, err := s.cfg.News.FetchNews(r.Context())
	if err != nil {
		s.cfg.Logger.Error().Msgf("fetching news: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]shared.NewsItem{"news": news})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.cfg.Prices.FetchPrices(r.Context())
	if err != nil {
		s.cfg.Logger.Error().Msgf("fetching prices: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]shared.PriceQuote{"prices": prices})
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]shared.Instrument{"instruments": s.cfg.Instruments})
}

// timeframeResponse is the wire form of a timeframe.
type timeframeResponse struct {
	Token           string  `json:"token"`
	Label           string  `json:"label"`
	LookbackDays    float64 `json:"days"`
	RefetchInterval string  `json:"refetch"`
	StaleAfter      string  `json:"stale"`
}

func (s *Server) handleTimeframes(w http.ResponseWriter, r *http.Request) {
	timeframes := make([]timeframeResponse, 0, len(s.cfg.Timeframes))
	for _, spec := range s.cfg.Timeframes {
		timeframes = append(timeframes, timeframeResponse{
			Token:           spec.Token,
			Label:           spec.Label,
			LookbackDays:    spec.LookbackDays,
			RefetchInterval: spec.RefetchInterval.String(),
			StaleAfter:      spec.StaleAfter.String(),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string][]timeframeResponse{"timeframes": timeframes})
}

// sizeQuery represents the optional chart size query parameters.
type sizeQuery struct {
	Width  int `schema:"width"`
	Height int `schema:"height"`
}

// parseSize parses the optional width and height query parameters.
func (s *Server) parseSize(r *http.Request) (int, int, error) {
	query := r.URL.Query()
	if !query.Has("width") && !query.Has("height") {
		return 0, 0, nil
	}

	if !query.Has("width") || !query.Has("height") {
		return 0, 0, fmt.Errorf("width and height must be provided together")
	}

	var q sizeQuery
	err := s.decoder.Decode(&q, query)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding size: %w", err)
	}

	if q.Width <= 0 || q.Width > maxSurfaceSize {
		return 0, 0, fmt.Errorf("width must be between 1 and %d, got %d", maxSurfaceSize, q.Width)
	}
	if q.Height <= 0 || q.Height > maxSurfaceSize {
		return 0, 0, fmt.Errorf("height must be between 1 and %d, got %d", maxSurfaceSize, q.Height)
	}

	return q.Width, q.Height, nil
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	width, height, err := s.parseSize(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), viewTimeout)
	defer cancel()

	var buf bytes.Buffer
	resp, err := s.cfg.Board.View(ctx, instrument, width, height, &buf)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Chart-Timeframe", resp.Timeframe)
	w.Header().Set("X-Chart-State", resp.State.String())
	if resp.Error != "" {
		w.Header().Set("X-Chart-Error", resp.Error)
	}
	w.WriteHeader(http.StatusOK)

	_, err = w.Write(buf.Bytes())
	if err != nil {
		s.cfg.Logger.Error().Msgf("writing %s chart: %v", instrument, err)
	}
}

// stateResponse is the wire form of a chart state.
type stateResponse struct {
	Instrument string `json:"instrument"`
	Timeframe  string `json:"timeframe"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
	Candles    int    `json:"candles"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func (s *Server) handleChartState(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	ctx, cancel := context.WithTimeout(r.Context(), viewTimeout)
	defer cancel()

	resp, err := s.cfg.Board.View(ctx, instrument, 0, 0, nil)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, stateResponse{
		Instrument: resp.Instrument,
		Timeframe:  resp.Timeframe,
		State:      resp.State.String(),
		Error:      resp.Error,
		Candles:    resp.Candles,
		Width:      resp.Width,
		Height:     resp.Height,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	err := s.cfg.Board.Refresh(instrument)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"instrument": instrument})
}

func (s *Server) handleTimeframe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	instrument := vars["instrument"]
	token := vars["token"]

	err := s.cfg.Board.SetTimeframe(instrument, token)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"instrument": instrument, "timeframe": token})
}

// Run serves the api until the provided context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: time.Second * 10,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info().Msgf("listening on %s", s.cfg.Address)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}

	return nil
}
