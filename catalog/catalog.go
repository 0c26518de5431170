package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/dnldd/candleview/shared"
	"gopkg.in/yaml.v3"
)

// Catalog represents the configured instruments and timeframes.
type Catalog struct {
	Instruments []shared.Instrument    `yaml:"instruments"`
	Timeframes  []shared.TimeframeSpec `yaml:"timeframes"`
}

// DefaultInstruments returns the built-in instrument catalog.
func DefaultInstruments() []shared.Instrument {
	return []shared.Instrument{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"},
		{ID: "ethereum", Name: "Ethereum", Symbol: "ETH"},
		{ID: "binancecoin", Name: "BNB", Symbol: "BNB"},
		{ID: "solana", Name: "Solana", Symbol: "SOL"},
		{ID: "cardano", Name: "Cardano", Symbol: "ADA"},
		{ID: "polkadot", Name: "Polkadot", Symbol: "DOT"},
		{ID: "chainlink", Name: "Chainlink", Symbol: "LINK"},
		{ID: "avalanche-2", Name: "Avalanche", Symbol: "AVAX"},
	}
}

// DefaultTimeframes returns the built-in timeframes. The source only serves
// daily granularity windows, so all intraday tokens share the one day lookback.
func DefaultTimeframes() []shared.TimeframeSpec {
	spec := func(token string, label string, days float64) shared.TimeframeSpec {
		return shared.TimeframeSpec{
			Token:           token,
			Label:           label,
			LookbackDays:    days,
			RefetchInterval: shared.DefaultRefetchInterval,
			StaleAfter:      shared.DefaultStaleAfter,
		}
	}

	return []shared.TimeframeSpec{
		spec("1d", "1 day", 1),
		spec("1m", "1 minute", 1),
		spec("5m", "5 minutes", 1),
		spec("10m", "10 minutes", 1),
		spec("15m", "15 minutes", 1),
		spec("30m", "30 minutes", 1),
		spec("1h", "1 hour", 1),
		spec("4h", "4 hours", 1),
		spec("1w", "1 week", 7),
		spec("1M", "1 month", 30),
		spec("1y", "1 year", 365),
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Instruments: DefaultInstruments(),
		Timeframes:  DefaultTimeframes(),
	}
}

// Validate asserts the catalog is sane.
func (c *Catalog) Validate() error {
	var errs error

	if len(c.Instruments) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no instruments provided"))
	}
	if len(c.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframes provided"))
	}

	ids := make(map[string]struct{}, len(c.Instruments))
	for idx := range c.Instruments {
		inst := c.Instruments[idx]
		if inst.ID == "" {
			errs = errors.Join(errs, fmt.Errorf("instrument %d: id cannot be an empty string", idx))
			continue
		}
		if _, ok := ids[inst.ID]; ok {
			errs = errors.Join(errs, fmt.Errorf("duplicate instrument id %s", inst.ID))
		}
		ids[inst.ID] = struct{}{}
	}

	tokens := make(map[string]struct{}, len(c.Timeframes))
	for idx := range c.Timeframes {
		spec := c.Timeframes[idx]
		err := spec.Validate()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if _, ok := tokens[spec.Token]; ok {
			errs = errors.Join(errs, fmt.Errorf("duplicate timeframe token %s", spec.Token))
		}
		tokens[spec.Token] = struct{}{}
	}

	return errs
}

// Instrument returns the catalog instrument with the provided id.
func (c *Catalog) Instrument(id string) (shared.Instrument, error) {
	for idx := range c.Instruments {
		if c.Instruments[idx].ID == id {
			return c.Instruments[idx], nil
		}
	}

	return shared.Instrument{}, fmt.Errorf("%w: %s", shared.ErrUnknownInstrument, id)
}

// Parse parses a yaml catalog. Sections left out fall back to the built-in defaults
// and timeframes missing a cadence inherit the default cadence.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	err := yaml.Unmarshal(data, &cat)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if len(cat.Instruments) == 0 {
		cat.Instruments = DefaultInstruments()
	}
	if len(cat.Timeframes) == 0 {
		cat.Timeframes = DefaultTimeframes()
	}

	for idx := range cat.Timeframes {
		spec := &cat.Timeframes[idx]
		if spec.RefetchInterval == 0 {
			spec.RefetchInterval = shared.DefaultRefetchInterval
		}
		if spec.StaleAfter == 0 {
			spec.StaleAfter = shared.DefaultStaleAfter
		}
		if spec.Label == "" {
			spec.Label = spec.Token
		}
	}

	err = cat.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	return &cat, nil
}

// Load loads the catalog from the provided yaml file path. An empty path or a
// missing file yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}

		return nil, fmt.Errorf("reading catalog from file with path '%s': %w", path, err)
	}

	return Parse(data)
}
