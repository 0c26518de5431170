package shared

// PriceQuote represents the latest usd price of an instrument.
type PriceQuote struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}
