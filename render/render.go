package render

import (
	"fmt"
	"math"
	"time"

	"github.com/dnldd/candleview/layout"
	"github.com/dnldd/candleview/shared"
)

const (
	// gridDivisions is the number of grid cells along each axis.
	gridDivisions = 5
	// priceLabels is the maximum number of price axis labels.
	priceLabels = 6
	// timeLabels is the maximum number of time axis labels.
	timeLabels = 5
	// wickWidth is the candle wick width in pixels.
	wickWidth = 1
	// minBodyHeight is the shortest candle body drawn, in pixels.
	minBodyHeight = 1
	// priceLabelGap is the gap between price labels and the plot area.
	priceLabelGap = 5
	// priceLabelBaseline is the vertical offset of price labels from their grid line.
	priceLabelBaseline = 4
	// timeLabelBaseline is the distance of time labels from the bottom edge.
	timeLabelBaseline = 10
)

// Render draws the provided series onto the surface using the provided geometry.
// Steps run in order and each is skipped when its precondition is absent. Surface
// failures are reported as render failures rather than panics.
func Render(surface Surface, geo layout.Geometry, series []shared.Candlestick, style Style) (err error) {
	if surface == nil {
		return fmt.Errorf("%w: no surface", shared.ErrRenderFailure)
	}
	if surface.Width() <= 0 || surface.Height() <= 0 {
		return fmt.Errorf("%w: invalid surface size %dx%d", shared.ErrRenderFailure,
			surface.Width(), surface.Height())
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", shared.ErrRenderFailure, r)
		}
	}()

	surface.Clear(style.Background)
	drawGrid(surface, &geo, style)

	count := min(geo.Count, len(series))
	if count == 0 {
		return nil
	}

	drawCandles(surface, &geo, series[:count], style)
	drawPriceLabels(surface, &geo, style)
	drawTimeLabels(surface, &geo, series[:count], style)

	return nil
}

// drawGrid draws the background reference grid spanning the plot area.
func drawGrid(surface Surface, geo *layout.Geometry, style Style) {
	cellWidth := geo.PlotWidth() / gridDivisions
	cellHeight := geo.PlotHeight() / gridDivisions

	for idx := 0; idx <= gridDivisions; idx++ {
		x := geo.PlotLeft() + cellWidth*float64(idx)
		surface.Line(x, geo.PlotTop(), x, geo.PlotBottom(), style.GridWidth, style.Grid)
	}

	for idx := 0; idx <= gridDivisions; idx++ {
		y := geo.PlotTop() + cellHeight*float64(idx)
		surface.Line(geo.PlotLeft(), y, geo.PlotRight(), y, style.GridWidth, style.Grid)
	}
}

// drawCandles draws a wick and body for every candle in series order.
func drawCandles(surface Surface, geo *layout.Geometry, series []shared.Candlestick, style Style) {
	for idx := range series {
		candle := &series[idx]

		color := style.Up
		if candle.FetchDirection() == shared.Down {
			color = style.Down
		}

		x := geo.SlotX(idx)
		openY := geo.PriceToY(candle.Open)
		closeY := geo.PriceToY(candle.Close)
		highY := geo.PriceToY(candle.High)
		lowY := geo.PriceToY(candle.Low)

		surface.Line(x, highY, x, lowY, wickWidth, color)

		bodyTop := math.Min(openY, closeY)
		bodyHeight := math.Max(minBodyHeight, math.Abs(closeY-openY))
		surface.FillRect(geo.CandleLeft(idx), bodyTop, geo.CandleWidth, bodyHeight, color)
	}
}

// drawPriceLabels draws evenly spaced price labels from the axis max to min along the left edge.
func drawPriceLabels(surface Surface, geo *layout.Geometry, style Style) {
	x := geo.PlotLeft() - priceLabelGap

	if geo.PriceRange() <= 0 {
		// A flat axis has a single distinct price.
		y := geo.PriceToY(geo.PriceMax)
		surface.Text(FormatPrice(geo.PriceMax), x, y+priceLabelBaseline, AlignRight, style.FontSize, style.Text)
		return
	}

	step := geo.PriceRange() / (priceLabels - 1)
	cellHeight := geo.PlotHeight() / (priceLabels - 1)
	for idx := 0; idx < priceLabels; idx++ {
		price := geo.PriceMax - step*float64(idx)
		y := geo.PlotTop() + cellHeight*float64(idx)
		surface.Text(FormatPrice(price), x, y+priceLabelBaseline, AlignRight, style.FontSize, style.Text)
	}
}

// drawTimeLabels draws time labels along the bottom edge, sampling candles at evenly
// spaced indices rather than evenly spaced instants.
func drawTimeLabels(surface Surface, geo *layout.Geometry, series []shared.Candlestick, style Style) {
	layoutStr := style.TimeLayout
	if layoutStr == "" {
		layoutStr = DefaultTimeLayout
	}

	loc := style.Location
	if loc == nil {
		loc = time.UTC
	}

	y := float64(geo.Height) - timeLabelBaseline
	cellWidth := geo.PlotWidth() / (timeLabels - 1)
	last := -1
	for idx := 0; idx < timeLabels; idx++ {
		sample := TimeLabelIndex(len(series), idx)
		if sample == last {
			continue
		}
		last = sample

		label := series[sample].Date().In(loc).Format(layoutStr)
		x := geo.PlotLeft() + cellWidth*float64(idx)
		surface.Text(label, x, y, AlignCenter, style.FontSize, style.Text)
	}
}

// TimeLabelIndex returns the series index sampled by the provided time label.
func TimeLabelIndex(count int, label int) int {
	return int(math.Floor(float64(count-1) * float64(label) / (timeLabels - 1)))
}

// FormatPrice formats the provided price as an axis label.
func FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}
