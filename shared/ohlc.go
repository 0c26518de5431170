package shared

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

const (
	// ohlcTupleSize is the number of entries in a wire ohlc tuple: [timestampMillis, open, high, low, close].
	ohlcTupleSize = 5
)

// ParseOHLC parses candlesticks from the provided array-of-tuples json data. Every
// candlestick is normalized before it is returned.
func ParseOHLC(data []byte) ([]Candlestick, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected array but got %s", ErrMalformedResponse, root.Type.String())
	}

	tuples := root.Array()
	candles := make([]Candlestick, 0, len(tuples))
	for idx := range tuples {
		tuple := tuples[idx]
		if !tuple.IsArray() {
			return nil, fmt.Errorf("%w: entry %d is not a tuple", ErrMalformedResponse, idx)
		}

		values := tuple.Array()
		if len(values) < ohlcTupleSize {
			return nil, fmt.Errorf("%w: entry %d has %d values, expected %d",
				ErrMalformedResponse, idx, len(values), ohlcTupleSize)
		}

		for vIdx := 0; vIdx < ohlcTupleSize; vIdx++ {
			if values[vIdx].Type != gjson.Number {
				return nil, fmt.Errorf("%w: entry %d value %d is not a number",
					ErrMalformedResponse, idx, vIdx)
			}
		}

		candle := Candlestick{
			Time:  int64(math.Floor(values[0].Float() / 1000)),
			Open:  values[1].Float(),
			High:  values[2].Float(),
			Low:   values[3].Float(),
			Close: values[4].Float(),
		}
		candle.Normalize()

		candles = append(candles, candle)
	}

	return candles, nil
}

// FormatOHLC encodes the provided candlesticks in the array-of-tuples wire format.
func FormatOHLC(candles []Candlestick) ([]byte, error) {
	tuples := make([][ohlcTupleSize]float64, 0, len(candles))
	for idx := range candles {
		candle := &candles[idx]
		tuples = append(tuples, [ohlcTupleSize]float64{
			float64(candle.Time * 1000), candle.Open, candle.High, candle.Low, candle.Close,
		})
	}

	data, err := json.Marshal(tuples)
	if err != nil {
		return nil, fmt.Errorf("encoding ohlc tuples: %w", err)
	}

	return data, nil
}
