package shared

// QuotePoint represents a single point of an intraday quote series.
type QuotePoint struct {
	// T is the hour label, e.g. "15h".
	T string `json:"t"`
	// P is the closing price.
	P float64 `json:"p"`
	// Timestamp is the bar open instant in milliseconds since the unix epoch.
	Timestamp int64 `json:"timestamp"`
}
