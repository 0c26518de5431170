package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/candleview/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createSeriesTableSQL   = "CREATE TABLE IF NOT EXISTS series (instrument TEXT NOT NULL, timeframe TEXT NOT NULL, payload TEXT NOT NULL, candles INTEGER, fetchedon INTEGER, PRIMARY KEY (instrument, timeframe))"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, instrument TEXT, total INTEGER, candles INTEGER, createdon INTEGER, updatedon INTEGER)"
	persistSeriesSQL       = "INSERT OR REPLACE INTO series(instrument, timeframe, payload, candles, fetchedon) VALUES(?,?,?,?,?)"
	persistMetadataSQL     = "INSERT INTO metadata(id, instrument, total, candles, createdon, updatedon) VALUES(?,?,1,?,?,?) ON CONFLICT(id) DO UPDATE SET total = total + 1, candles = candles + excluded.candles, updatedon = excluded.updatedon"
	findSeriesSQL          = "SELECT payload, fetchedon FROM series WHERE instrument = ? AND timeframe = ?"
)

// ErrSeriesNotFound is returned when no snapshot is stored for a series.
var ErrSeriesNotFound = errors.New("series not found")

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
	now    func() time.Time
}

// Ensure the database implements the SeriesStorer interface.
var _ shared.SeriesStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createSeriesTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating tables: %d -> %s", idx, errStr)
	}

	return nil
}

// generateMetadataID generates deterministic ids for fetch metadata using the
// current month, week and instrument.
func generateMetadataID(currentTime time.Time, instrumentID string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, instrumentID)
	return id
}

// PersistSeries stores the provided series snapshot, replacing any previous one,
// and tallies the fetch in the instrument's weekly metadata.
func (db *Database) PersistSeries(ctx context.Context, instrumentID string, timeframe string, candles []shared.Candlestick) error {
	payload, err := shared.FormatOHLC(candles)
	if err != nil {
		return fmt.Errorf("encoding %s %s series: %w", instrumentID, timeframe, err)
	}

	now := db.now()
	id := generateMetadataID(now, instrumentID)

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistSeriesSQL,
			PositionalParams: []any{instrumentID, timeframe, string(payload), len(candles), now.Unix()},
		},
		{
			SQL:              persistMetadataSQL,
			PositionalParams: []any{id, instrumentID, len(candles), now.Unix(), now.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting %s %s series: %d -> %s", instrumentID, timeframe, idx, errStr)
	}

	return nil
}

// FetchSeries returns the stored series snapshot of the provided instrument and
// timeframe, along with when it was fetched.
func (db *Database) FetchSeries(ctx context.Context, instrumentID string, timeframe string) ([]shared.Candlestick, time.Time, error) {
	resp, err := db.client.QuerySingle(ctx, findSeriesSQL, instrumentID, timeframe)
	if err != nil {
		return nil, time.Time{}, err
	}

	results := resp.GetQueryResults()
	if len(results) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: %s %s", ErrSeriesNotFound, instrumentID, timeframe)
	}
	if results[0].Error != "" {
		return nil, time.Time{}, fmt.Errorf("querying %s %s series: %s", instrumentID, timeframe, results[0].Error)
	}
	if len(results[0].Values) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: %s %s", ErrSeriesNotFound, instrumentID, timeframe)
	}

	candles, fetchedAt, err := parseSeriesRow(results[0].Values[0])
	if err != nil {
		db.cfg.Logger.Error().Msgf("unexpected %s %s series row: %s", instrumentID, timeframe, spew.Sdump(results[0].Values[0]))
		return nil, time.Time{}, err
	}

	return candles, fetchedAt, nil
}

// parseSeriesRow parses a (payload, fetchedon) series row.
func parseSeriesRow(row []any) ([]shared.Candlestick, time.Time, error) {
	if len(row) != 2 {
		return nil, time.Time{}, fmt.Errorf("expected 2 series columns, got %d", len(row))
	}

	payload, ok := row[0].(string)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("unexpected series payload type %T", row[0])
	}

	var fetchedOn int64
	switch v := row[1].(type) {
	case float64:
		fetchedOn = int64(v)
	case int64:
		fetchedOn = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("parsing fetched on: %w", err)
		}
		fetchedOn = n
	default:
		return nil, time.Time{}, fmt.Errorf("unexpected fetched on type %T", row[1])
	}

	candles, err := shared.ParseOHLC([]byte(payload))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing series payload: %w", err)
	}

	return candles, time.Unix(fetchedOn, 0), nil
}
