package shared

import (
	"io"
)

// ViewRequest represents a request to draw the current chart of an instrument.
type ViewRequest struct {
	// Width and Height are the requested surface size in pixels, zero keeps the current size.
	Width  int
	Height int
	// Writer receives the encoded chart, nil skips encoding.
	Writer   io.Writer
	Response chan ViewResponse
}

// ViewResponse represents the response to a view request.
type ViewResponse struct {
	Instrument string
	Timeframe  string
	State      State
	// Width and Height are the current surface size in pixels.
	Width  int
	Height int
	// Error is the human readable message of the last failure, if any.
	Error   string
	Candles int
	Err     error
}

// NewViewRequest initializes a new view request.
func NewViewRequest(width int, height int, writer io.Writer) *ViewRequest {
	return &ViewRequest{
		Width:    width,
		Height:   height,
		Writer:   writer,
		Response: make(chan ViewResponse, 1),
	}
}
