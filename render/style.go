package render

import (
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	// DefaultTimeLayout is the default layout of time axis labels.
	DefaultTimeLayout = "15:04"
)

// Style represents the colors and typography of a rendered chart.
type Style struct {
	// Up is the wick and body color of candles closing at or above their open.
	Up drawing.Color
	// Down is the wick and body color of candles closing below their open.
	Down drawing.Color
	// Grid is the background grid line color.
	Grid drawing.Color
	// Text is the axis label color.
	Text drawing.Color
	// Background is the color the surface is cleared to.
	Background drawing.Color
	// GridWidth is the grid line width in pixels.
	GridWidth float64
	// FontSize is the axis label font size.
	FontSize float64
	// TimeLayout is the time axis label layout.
	TimeLayout string
	// Location is the time axis label location.
	Location *time.Location
}

// DefaultStyle returns the default chart style.
func DefaultStyle() Style {
	return Style{
		Up:         drawing.ColorFromHex("16a34a"),
		Down:       drawing.ColorFromHex("dc2626"),
		Grid:       drawing.ColorFromHex("e5e7eb"),
		Text:       drawing.ColorFromHex("111827"),
		Background: drawing.ColorWhite,
		GridWidth:  0.5,
		FontSize:   9,
		TimeLayout: DefaultTimeLayout,
		Location:   time.UTC,
	}
}

// WithColors returns a copy of the style using the provided hex up and down colors.
// Empty values keep the current colors.
func (s Style) WithColors(up string, down string) Style {
	if up != "" {
		s.Up = drawing.ColorFromHex(up)
	}
	if down != "" {
		s.Down = drawing.ColorFromHex(down)
	}

	return s
}
