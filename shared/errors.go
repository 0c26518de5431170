package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when an upstream payload does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnknownTimeframe is returned when a timeframe token is not configured.
	ErrUnknownTimeframe = errors.New("unknown timeframe")
	// ErrRenderFailure is returned when the drawing surface cannot be rendered to.
	ErrRenderFailure = errors.New("render failure")
	// ErrUnknownInstrument is returned when an instrument id is not in the catalog.
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// SourceUnavailableError represents a network or http failure from a market data source.
type SourceUnavailableError struct {
	// StatusCode is the http status code, zero for transport failures.
	StatusCode int
	// Body is the raw response body text.
	Body string
	// Err is the underlying transport error, if any.
	Err error
}

// Error returns the error message.
func (e *SourceUnavailableError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("source unavailable: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("source unavailable: status %d: %v", e.StatusCode, e.Err)
	}

	return fmt.Sprintf("source unavailable: status %d - %s", e.StatusCode, e.Body)
}

// Unwrap returns the underlying transport error.
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// IsSourceUnavailable checks whether the provided error is a source unavailable error.
func IsSourceUnavailable(err error) bool {
	var sue *SourceUnavailableError
	return errors.As(err, &sue)
}
