package shared

import (
	"math"
	"time"
)

// Direction represents the direction of a candlestick.
type Direction int

const (
	Up Direction = iota
	Down
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit OHLC candlestick for an instrument.
type Candlestick struct {
	// Time is the bucket open instant in seconds since the unix epoch.
	Time  int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Date returns the candlestick open instant as a UTC time.
func (c *Candlestick) Date() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// Normalize clamps the candlestick's high and low so they bound both the open and close.
func (c *Candlestick) Normalize() {
	c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
	c.High = math.Max(c.High, math.Max(c.Open, c.Close))
}

// FetchDirection returns the provided candlestick's direction. A doji is treated as up.
func (c *Candlestick) FetchDirection() Direction {
	if c.Close >= c.Open {
		return Up
	}

	return Down
}

// PriceBounds returns the lowest and highest price across all OHLC values of the series.
// It returns false if the series is empty.
func PriceBounds(series []Candlestick) (float64, float64, bool) {
	if len(series) == 0 {
		return 0, 0, false
	}

	low := math.Inf(1)
	high := math.Inf(-1)
	for idx := range series {
		candle := &series[idx]
		low = math.Min(low, math.Min(math.Min(candle.Open, candle.High), math.Min(candle.Low, candle.Close)))
		high = math.Max(high, math.Max(math.Max(candle.Open, candle.High), math.Max(candle.Low, candle.Close)))
	}

	return low, high, true
}
