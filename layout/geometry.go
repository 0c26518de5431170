package layout

import (
	"math"

	"github.com/dnldd/candleview/shared"
)

const (
	// Padding is the fixed padding in pixels applied to all four sides of the plot.
	Padding = 40
	// candleWidthRatio is the share of a slot occupied by a candle body.
	candleWidthRatio = 0.8
	// minCandleWidth is the narrowest candle body drawn, in pixels.
	minCandleWidth = 2
)

// Geometry represents the viewport geometry of a single render pass.
type Geometry struct {
	// Width and Height are the surface size in pixels.
	Width  int
	Height int

	PaddingLeft   float64
	PaddingRight  float64
	PaddingTop    float64
	PaddingBottom float64

	// PriceMin and PriceMax are the price axis bounds, a tight fit of the series.
	PriceMin float64
	PriceMax float64

	// SlotWidth is the per-candle spacing and CandleWidth the per-candle body width.
	SlotWidth   float64
	CandleWidth float64

	// Count is the number of candles laid out.
	Count int
}

// ComputeGeometry computes the viewport geometry for the provided series and surface size.
// It is a pure function of its inputs. An empty series yields a degenerate geometry
// with no slots whose plot frame still spans the padded area.
func ComputeGeometry(series []shared.Candlestick, width int, height int) Geometry {
	geo := Geometry{
		Width:         width,
		Height:        height,
		PaddingLeft:   Padding,
		PaddingRight:  Padding,
		PaddingTop:    Padding,
		PaddingBottom: Padding,
		Count:         len(series),
	}

	low, high, ok := shared.PriceBounds(series)
	if !ok {
		return geo
	}

	geo.PriceMin = low
	geo.PriceMax = high
	geo.SlotWidth = geo.PlotWidth() / float64(len(series))
	geo.CandleWidth = math.Max(minCandleWidth, geo.SlotWidth*candleWidthRatio)

	return geo
}

// Empty checks whether the geometry has no candles laid out.
func (g *Geometry) Empty() bool {
	return g.Count == 0
}

// PlotWidth returns the width of the plot area, never negative.
func (g *Geometry) PlotWidth() float64 {
	return math.Max(0, float64(g.Width)-g.PaddingLeft-g.PaddingRight)
}

// PlotHeight returns the height of the plot area, never negative.
func (g *Geometry) PlotHeight() float64 {
	return math.Max(0, float64(g.Height)-g.PaddingTop-g.PaddingBottom)
}

// PlotLeft returns the x coordinate of the left edge of the plot area.
func (g *Geometry) PlotLeft() float64 {
	return g.PaddingLeft
}

// PlotRight returns the x coordinate of the right edge of the plot area.
func (g *Geometry) PlotRight() float64 {
	return g.PaddingLeft + g.PlotWidth()
}

// PlotTop returns the y coordinate of the top edge of the plot area.
func (g *Geometry) PlotTop() float64 {
	return g.PaddingTop
}

// PlotBottom returns the y coordinate of the bottom edge of the plot area.
func (g *Geometry) PlotBottom() float64 {
	return g.PaddingTop + g.PlotHeight()
}

// PriceRange returns the span of the price axis.
func (g *Geometry) PriceRange() float64 {
	return g.PriceMax - g.PriceMin
}

// PriceToY maps the provided price to a y coordinate, higher prices map closer to the top.
// A flat price axis maps every price to the vertical middle of the plot.
func (g *Geometry) PriceToY(price float64) float64 {
	priceRange := g.PriceRange()
	if priceRange <= 0 {
		return g.PlotTop() + g.PlotHeight()/2
	}

	return g.PlotTop() + ((g.PriceMax-price)/priceRange)*g.PlotHeight()
}

// SlotX returns the x coordinate of the centre of the slot at the provided index.
func (g *Geometry) SlotX(idx int) float64 {
	return g.PlotLeft() + float64(idx)*g.SlotWidth + g.SlotWidth/2
}

// CandleLeft returns the x coordinate of the left edge of the candle body at the provided index.
func (g *Geometry) CandleLeft(idx int) float64 {
	return g.SlotX(idx) - g.CandleWidth/2
}
