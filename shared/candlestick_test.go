package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFetchDirection(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Direction
	}{
		{
			name:   "doji candle",
			candle: Candlestick{Open: 5, Close: 5, High: 9, Low: 1},
			want:   Up,
		},
		{
			name:   "up candle",
			candle: Candlestick{Open: 5, Close: 15, High: 20, Low: 1},
			want:   Up,
		},
		{
			name:   "down candle",
			candle: Candlestick{Open: 15, Close: 5, High: 20, Low: 1},
			want:   Down,
		},
	}

	for _, test := range tests {
		direction := test.candle.FetchDirection()
		if direction != test.want {
			t.Errorf("%s: expected %s direction, got %s",
				test.name, test.want.String(), direction.String())
		}
	}
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, Up.String(), "up")
	assert.Equal(t, Down.String(), "down")
	assert.Equal(t, Direction(9).String(), "unknown")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Candlestick
	}{
		{
			name:   "valid candle is untouched",
			candle: Candlestick{Open: 100, High: 110, Low: 95, Close: 105},
			want:   Candlestick{Open: 100, High: 110, Low: 95, Close: 105},
		},
		{
			name:   "high below close is raised",
			candle: Candlestick{Open: 100, High: 101, Low: 95, Close: 105},
			want:   Candlestick{Open: 100, High: 105, Low: 95, Close: 105},
		},
		{
			name:   "low above open is lowered",
			candle: Candlestick{Open: 90, High: 110, Low: 95, Close: 105},
			want:   Candlestick{Open: 90, High: 110, Low: 90, Close: 105},
		},
		{
			name:   "inverted high and low",
			candle: Candlestick{Open: 100, High: 90, Low: 120, Close: 105},
			want:   Candlestick{Open: 100, High: 105, Low: 100, Close: 105},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			candle := test.candle
			candle.Normalize()
			assert.Equal(t, candle, test.want)

			// Ensure the invariant holds after normalization.
			assert.True(t, candle.Low <= candle.Open && candle.Open <= candle.High)
			assert.True(t, candle.Low <= candle.Close && candle.Close <= candle.High)
		})
	}
}

func TestCandlestickDate(t *testing.T) {
	candle := Candlestick{Time: 1700000000}
	assert.Equal(t, candle.Date(), time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC))
}

func TestPriceBounds(t *testing.T) {
	// Ensure an empty series reports no bounds.
	_, _, ok := PriceBounds(nil)
	assert.False(t, ok)

	// Ensure bounds span every ohlc value of the series.
	series := []Candlestick{
		{Time: 1, Open: 10, High: 12, Low: 9, Close: 11},
		{Time: 2, Open: 11, High: 15, Low: 7, Close: 14},
		{Time: 2, Open: 14, High: 14, Low: 13, Close: 13},
	}

	low, high, ok := PriceBounds(series)
	assert.True(t, ok)
	assert.Equal(t, low, float64(7))
	assert.Equal(t, high, float64(15))
}
