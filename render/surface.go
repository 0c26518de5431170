package render

import (
	"fmt"
	"io"
	"math"

	"github.com/dnldd/candleview/shared"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Align represents the horizontal alignment of text relative to its anchor.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Surface defines the requirements for a drawing surface.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int
	// Height returns the surface height in pixels.
	Height() int
	// Clear fills the full surface with the provided color.
	Clear(color drawing.Color)
	// Line strokes a line between the provided points.
	Line(x1, y1, x2, y2 float64, width float64, color drawing.Color)
	// FillRect fills the provided rectangle.
	FillRect(x, y, w, h float64, color drawing.Color)
	// Text draws the provided text with its baseline at y.
	Text(body string, x, y float64, align Align, size float64, color drawing.Color)
}

// ChartSurface is a raster surface backed by a go-chart renderer.
type ChartSurface struct {
	width    int
	height   int
	renderer chart.Renderer
}

// Ensure the chart surface implements the Surface interface.
var _ Surface = (*ChartSurface)(nil)

// NewChartSurface initializes a new png chart surface of the provided size.
func NewChartSurface(width int, height int) (*ChartSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid surface size %dx%d", shared.ErrRenderFailure, width, height)
	}

	renderer, err := chart.PNG(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: creating png renderer: %v", shared.ErrRenderFailure, err)
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("%w: loading default font: %v", shared.ErrRenderFailure, err)
	}

	renderer.SetFont(font)

	return &ChartSurface{
		width:    width,
		height:   height,
		renderer: renderer,
	}, nil
}

// Width returns the surface width in pixels.
func (s *ChartSurface) Width() int {
	return s.width
}

// Height returns the surface height in pixels.
func (s *ChartSurface) Height() int {
	return s.height
}

// rect traces a closed rectangle path.
func (s *ChartSurface) rect(left, top, right, bottom int) {
	s.renderer.MoveTo(left, top)
	s.renderer.LineTo(right, top)
	s.renderer.LineTo(right, bottom)
	s.renderer.LineTo(left, bottom)
	s.renderer.LineTo(left, top)
	s.renderer.Close()
}

// Clear fills the full surface with the provided color.
func (s *ChartSurface) Clear(color drawing.Color) {
	s.renderer.SetFillColor(color)
	s.rect(0, 0, s.width, s.height)
	s.renderer.Fill()
}

// Line strokes a line between the provided points.
func (s *ChartSurface) Line(x1, y1, x2, y2 float64, width float64, color drawing.Color) {
	s.renderer.SetStrokeColor(color)
	s.renderer.SetStrokeWidth(width)
	s.renderer.MoveTo(px(x1), px(y1))
	s.renderer.LineTo(px(x2), px(y2))
	s.renderer.Stroke()
}

// FillRect fills the provided rectangle.
func (s *ChartSurface) FillRect(x, y, w, h float64, color drawing.Color) {
	s.renderer.SetFillColor(color)
	s.rect(px(x), px(y), px(x+w), px(y+h))
	s.renderer.Fill()
}

// Text draws the provided text with its baseline at y.
func (s *ChartSurface) Text(body string, x, y float64, align Align, size float64, color drawing.Color) {
	s.renderer.SetFontColor(color)
	s.renderer.SetFontSize(size)

	left := px(x)
	switch align {
	case AlignCenter:
		left -= s.renderer.MeasureText(body).Width() / 2
	case AlignRight:
		left -= s.renderer.MeasureText(body).Width()
	}

	s.renderer.Text(body, left, px(y))
}

// Save encodes the surface as a png to the provided writer.
func (s *ChartSurface) Save(w io.Writer) error {
	return s.renderer.Save(w)
}

// px rounds the provided coordinate to the nearest pixel.
func px(v float64) int {
	return int(math.Round(v))
}
