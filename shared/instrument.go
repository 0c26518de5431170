package shared

// Instrument represents a tracked instrument.
type Instrument struct {
	// ID is the market data source id, e.g. "bitcoin".
	ID string `yaml:"id" json:"id"`
	// Name is the display name.
	Name string `yaml:"name" json:"name"`
	// Symbol is the ticker symbol.
	Symbol string `yaml:"symbol" json:"symbol"`
}

// String stringifies the provided instrument.
func (i Instrument) String() string {
	return i.Name + " (" + i.Symbol + ")"
}
