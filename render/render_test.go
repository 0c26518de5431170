package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/dnldd/candleview/layout"
	"github.com/dnldd/candleview/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type lineOp struct {
	x1, y1, x2, y2 float64
	width          float64
	color          drawing.Color
}

type rectOp struct {
	x, y, w, h float64
	color      drawing.Color
}

type textOp struct {
	body  string
	x, y  float64
	align Align
}

// recordingSurface records draw calls for inspection.
type recordingSurface struct {
	width   int
	height  int
	clears  int
	lines   []lineOp
	rects   []rectOp
	texts   []textOp
	panicOn string
}

func (s *recordingSurface) Width() int  { return s.width }
func (s *recordingSurface) Height() int { return s.height }

func (s *recordingSurface) Clear(color drawing.Color) {
	s.clears++
}

func (s *recordingSurface) Line(x1, y1, x2, y2 float64, width float64, color drawing.Color) {
	s.lines = append(s.lines, lineOp{x1, y1, x2, y2, width, color})
}

func (s *recordingSurface) FillRect(x, y, w, h float64, color drawing.Color) {
	if s.panicOn == "rect" {
		panic("surface lost")
	}
	s.rects = append(s.rects, rectOp{x, y, w, h, color})
}

func (s *recordingSurface) Text(body string, x, y float64, align Align, size float64, color drawing.Color) {
	s.texts = append(s.texts, textOp{body, x, y, align})
}

// gridLines is the number of lines drawn by the background grid.
const gridLines = (gridDivisions + 1) * 2

func TestRenderEmptySeries(t *testing.T) {
	surface := &recordingSurface{width: 800, height: 400}
	geo := layout.ComputeGeometry(nil, surface.Width(), surface.Height())

	// Ensure an empty series draws the grid but no candles or labels.
	err := Render(surface, geo, nil, DefaultStyle())
	assert.NoError(t, err)
	assert.Equal(t, surface.clears, 1)
	assert.Equal(t, len(surface.lines), gridLines)
	assert.Equal(t, len(surface.rects), 0)
	assert.Equal(t, len(surface.texts), 0)

	// Ensure grid lines span the plot area.
	first := surface.lines[0]
	assert.Equal(t, first.x1, float64(40))
	assert.Equal(t, first.y1, float64(40))
	assert.Equal(t, first.y2, float64(360))
	last := surface.lines[len(surface.lines)-1]
	assert.Equal(t, last.x2, float64(760))
	assert.Equal(t, last.y1, float64(360))
}

func TestRenderSingleCandle(t *testing.T) {
	style := DefaultStyle()
	series := []shared.Candlestick{
		{Time: 1700000000, Open: 100, High: 110, Low: 95, Close: 105},
	}

	surface := &recordingSurface{width: 840, height: 340}
	geo := layout.ComputeGeometry(series, surface.Width(), surface.Height())

	err := Render(surface, geo, series, style)
	assert.NoError(t, err)

	// Ensure the wick spans high to low in the up color.
	assert.Equal(t, len(surface.lines), gridLines+1)
	wick := surface.lines[gridLines]
	assert.Equal(t, wick.color, style.Up)
	assert.Equal(t, wick.width, float64(wickWidth))
	assert.Equal(t, wick.y1, geo.PriceToY(110))
	assert.Equal(t, wick.y2, geo.PriceToY(95))
	assert.Equal(t, wick.x1, geo.SlotX(0))

	// Ensure the body spans open to close in the up color.
	assert.Equal(t, len(surface.rects), 1)
	body := surface.rects[0]
	assert.Equal(t, body.color, style.Up)
	assert.Equal(t, body.y, geo.PriceToY(105))
	assert.Equal(t, body.h, geo.PriceToY(100)-geo.PriceToY(105))
	assert.Equal(t, body.w, geo.CandleWidth)
	assert.Equal(t, body.x, geo.CandleLeft(0))

	// Ensure six price labels from max to min and a single time label are drawn.
	assert.Equal(t, len(surface.texts), priceLabels+1)
	assert.Equal(t, surface.texts[0].body, "$110.00")
	assert.Equal(t, surface.texts[0].align, AlignRight)
	assert.Equal(t, surface.texts[priceLabels-1].body, "$95.00")
	assert.Equal(t, surface.texts[priceLabels].body, "22:13")
	assert.Equal(t, surface.texts[priceLabels].align, AlignCenter)
}

func TestRenderDirections(t *testing.T) {
	style := DefaultStyle()
	series := []shared.Candlestick{
		{Time: 1, Open: 100, High: 110, Low: 95, Close: 105},
		{Time: 2, Open: 105, High: 106, Low: 90, Close: 92},
		{Time: 3, Open: 92, High: 95, Low: 91, Close: 92},
	}

	surface := &recordingSurface{width: 600, height: 300}
	geo := layout.ComputeGeometry(series, surface.Width(), surface.Height())
	err := Render(surface, geo, series, style)
	assert.NoError(t, err)

	// Ensure candles are colored by direction, a doji being up.
	assert.Equal(t, len(surface.rects), 3)
	assert.Equal(t, surface.rects[0].color, style.Up)
	assert.Equal(t, surface.rects[1].color, style.Down)
	assert.Equal(t, surface.rects[2].color, style.Up)

	// Ensure the doji body is still visible.
	assert.Equal(t, surface.rects[2].h, float64(minBodyHeight))

	// Ensure candles are drawn in series order.
	assert.True(t, surface.rects[0].x < surface.rects[1].x)
	assert.True(t, surface.rects[1].x < surface.rects[2].x)

	// Ensure time labels sample distinct indices only.
	timeTexts := surface.texts[priceLabels:]
	assert.Equal(t, len(timeTexts), 3)
}

func TestRenderConfiguredColors(t *testing.T) {
	style := DefaultStyle().WithColors("0000ff", "ffff00")
	series := []shared.Candlestick{
		{Time: 1, Open: 1, High: 3, Low: 0.5, Close: 2},
		{Time: 2, Open: 2, High: 2.5, Low: 0.5, Close: 1},
	}

	surface := &recordingSurface{width: 300, height: 200}
	geo := layout.ComputeGeometry(series, surface.Width(), surface.Height())
	err := Render(surface, geo, series, style)
	assert.NoError(t, err)
	assert.Equal(t, surface.rects[0].color, drawing.ColorFromHex("0000ff"))
	assert.Equal(t, surface.rects[1].color, drawing.ColorFromHex("ffff00"))
}

func TestRenderFlatSeries(t *testing.T) {
	series := []shared.Candlestick{
		{Time: 1, Open: 7, High: 7, Low: 7, Close: 7},
		{Time: 2, Open: 7, High: 7, Low: 7, Close: 7},
	}

	surface := &recordingSurface{width: 400, height: 300}
	geo := layout.ComputeGeometry(series, surface.Width(), surface.Height())
	err := Render(surface, geo, series, DefaultStyle())
	assert.NoError(t, err)

	// Ensure every body sits at the same mid height.
	assert.Equal(t, len(surface.rects), 2)
	assert.Equal(t, surface.rects[0].y, surface.rects[1].y)
	assert.Equal(t, surface.rects[0].y, float64(150))

	// Ensure a flat axis draws a single price label.
	assert.Equal(t, surface.texts[0].body, "$7.00")
	assert.Equal(t, surface.texts[1].body, "00:00")
}

func TestRenderFailures(t *testing.T) {
	series := []shared.Candlestick{{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}}

	// Ensure a missing surface is a render failure.
	err := Render(nil, layout.ComputeGeometry(series, 10, 10), series, DefaultStyle())
	assert.True(t, errors.Is(err, shared.ErrRenderFailure))

	// Ensure a zero size surface is a render failure.
	surface := &recordingSurface{}
	err = Render(surface, layout.ComputeGeometry(series, 0, 0), series, DefaultStyle())
	assert.True(t, errors.Is(err, shared.ErrRenderFailure))

	// Ensure surface panics are recovered as render failures.
	surface = &recordingSurface{width: 100, height: 100, panicOn: "rect"}
	err = Render(surface, layout.ComputeGeometry(series, 100, 100), series, DefaultStyle())
	assert.True(t, errors.Is(err, shared.ErrRenderFailure))
}

func TestTimeLabelIndex(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  []int
	}{
		{"single candle", 1, []int{0, 0, 0, 0, 0}},
		{"five candles", 5, []int{0, 1, 2, 3, 4}},
		{"fifty candles", 50, []int{0, 12, 24, 36, 49}},
	}

	for _, test := range tests {
		for label := 0; label < timeLabels; label++ {
			idx := TimeLabelIndex(test.count, label)
			if idx != test.want[label] {
				t.Errorf("%s: expected index %d for label %d, got %d",
					test.name, test.want[label], label, idx)
			}
		}
	}
}

func TestChartSurface(t *testing.T) {
	// Ensure invalid surface sizes are rejected.
	_, err := NewChartSurface(0, 100)
	assert.True(t, errors.Is(err, shared.ErrRenderFailure))

	surface, err := NewChartSurface(200, 100)
	assert.NoError(t, err)
	assert.Equal(t, surface.Width(), 200)
	assert.Equal(t, surface.Height(), 100)

	style := DefaultStyle()
	series := []shared.Candlestick{
		{Time: 1700000000, Open: 100, High: 110, Low: 95, Close: 105},
	}

	geo := layout.ComputeGeometry(series, surface.Width(), surface.Height())
	err = Render(surface, geo, series, style)
	assert.NoError(t, err)

	// Ensure the surface encodes to a png of the surface size.
	var buf bytes.Buffer
	err = surface.Save(&buf)
	assert.NoError(t, err)

	img, err := png.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, img.Bounds().Dx(), 200)
	assert.Equal(t, img.Bounds().Dy(), 100)

	// Ensure the centre of the candle body is painted in the up color.
	got := color.RGBAModel.Convert(img.At(100, 50)).(color.RGBA)
	assert.Equal(t, got, color.RGBA{R: style.Up.R, G: style.Up.G, B: style.Up.B, A: 255})
}
