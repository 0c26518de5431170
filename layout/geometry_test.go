package layout

import (
	"math"
	"testing"

	"github.com/dnldd/candleview/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func generateSeries(n int) []shared.Candlestick {
	series := make([]shared.Candlestick, 0, n)
	for idx := 0; idx < n; idx++ {
		base := float64(100 + idx)
		series = append(series, shared.Candlestick{
			Time:  int64(1700000000 + idx*60),
			Open:  base,
			High:  base + 5,
			Low:   base - 5,
			Close: base + 1,
		})
	}

	return series
}

func TestComputeGeometryEmpty(t *testing.T) {
	// Ensure an empty series yields a degenerate geometry without erroring.
	geo := ComputeGeometry(nil, 800, 400)
	assert.True(t, geo.Empty())
	assert.Equal(t, geo.SlotWidth, float64(0))
	assert.Equal(t, geo.CandleWidth, float64(0))

	// Ensure the plot frame still spans the padded area.
	assert.Equal(t, geo.PlotWidth(), float64(720))
	assert.Equal(t, geo.PlotHeight(), float64(320))
	assert.Equal(t, geo.PlotLeft(), float64(40))
	assert.Equal(t, geo.PlotRight(), float64(760))
	assert.Equal(t, geo.PlotBottom(), float64(360))
}

func TestComputeGeometry(t *testing.T) {
	series := []shared.Candlestick{
		{Time: 1700000000, Open: 100, High: 110, Low: 95, Close: 105},
		{Time: 1700000060, Open: 105, High: 120, Low: 100, Close: 102},
		{Time: 1700000120, Open: 102, High: 104, Low: 80, Close: 90},
		{Time: 1700000180, Open: 90, High: 96, Low: 88, Close: 95},
	}

	geo := ComputeGeometry(series, 840, 440)
	assert.False(t, geo.Empty())
	assert.Equal(t, geo.Count, 4)

	// Ensure the price axis is a tight fit.
	assert.Equal(t, geo.PriceMin, float64(80))
	assert.Equal(t, geo.PriceMax, float64(120))

	// Ensure the plot width is divided into equal slots.
	assert.Equal(t, geo.SlotWidth, float64(190))
	assert.Equal(t, geo.CandleWidth, float64(152))

	// Ensure prices map onto the plot height, highest at the top.
	assert.Equal(t, geo.PriceToY(120), float64(40))
	assert.Equal(t, geo.PriceToY(80), float64(400))
	assert.Equal(t, geo.PriceToY(100), float64(220))

	// Ensure slots map onto the plot width.
	assert.Equal(t, geo.SlotX(0), float64(135))
	assert.Equal(t, geo.SlotX(3), float64(705))
	assert.Equal(t, geo.CandleLeft(0), float64(59))
}

func TestComputeGeometryMinCandleWidth(t *testing.T) {
	// Ensure candles on dense series never drop below the minimum width.
	geo := ComputeGeometry(generateSeries(1000), 480, 300)
	assert.Equal(t, geo.SlotWidth, float64(0.4))
	assert.Equal(t, geo.CandleWidth, float64(minCandleWidth))
}

func TestComputeGeometryFlatSeries(t *testing.T) {
	series := []shared.Candlestick{
		{Time: 1, Open: 50, High: 50, Low: 50, Close: 50},
		{Time: 2, Open: 50, High: 50, Low: 50, Close: 50},
		{Time: 3, Open: 50, High: 50, Low: 50, Close: 50},
	}

	geo := ComputeGeometry(series, 400, 300)
	assert.Equal(t, geo.PriceRange(), float64(0))

	// Ensure a flat series maps every price to the same finite y at mid height.
	want := geo.PlotTop() + geo.PlotHeight()/2
	for idx := range series {
		for _, price := range []float64{series[idx].Open, series[idx].High, series[idx].Low, series[idx].Close} {
			y := geo.PriceToY(price)
			assert.False(t, math.IsNaN(y) || math.IsInf(y, 0))
			assert.Equal(t, y, want)
		}
	}
}

func TestComputeGeometryIdempotent(t *testing.T) {
	series := generateSeries(50)

	// Ensure identical inputs yield identical geometry.
	a := ComputeGeometry(series, 1024, 512)
	b := ComputeGeometry(series, 1024, 512)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("geometry mismatch (-a +b):\n%s", diff)
	}

	// Ensure the series is not mutated.
	assert.Equal(t, series, generateSeries(50))
}

func TestComputeGeometryTinySurface(t *testing.T) {
	// Ensure surfaces smaller than the padding yield a zero plot area.
	geo := ComputeGeometry(generateSeries(3), 50, 30)
	assert.Equal(t, geo.PlotWidth(), float64(0))
	assert.Equal(t, geo.PlotHeight(), float64(0))
	assert.Equal(t, geo.CandleWidth, float64(minCandleWidth))

	y := geo.PriceToY(101)
	assert.False(t, math.IsNaN(y))
}
