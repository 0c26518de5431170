package timeframe

import (
	"errors"
	"fmt"

	"github.com/dnldd/candleview/shared"
)

const (
	// preferredDefault is the token used as the default timeframe when configured.
	preferredDefault = "1d"
)

// Resolver maps timeframe tokens to their configured specs. Several tokens may
// share the same lookback window; this is the one place that mapping is declared.
type Resolver struct {
	specs  map[string]shared.TimeframeSpec
	tokens []string
}

// NewResolver initializes a new timeframe resolver from the provided specs.
func NewResolver(specs []shared.TimeframeSpec) (*Resolver, error) {
	if len(specs) == 0 {
		return nil, errors.New("no timeframes provided")
	}

	r := &Resolver{
		specs:  make(map[string]shared.TimeframeSpec, len(specs)),
		tokens: make([]string, 0, len(specs)),
	}

	for idx := range specs {
		spec := specs[idx]
		err := spec.Validate()
		if err != nil {
			return nil, fmt.Errorf("validating timeframe: %w", err)
		}

		if _, ok := r.specs[spec.Token]; ok {
			return nil, fmt.Errorf("duplicate timeframe token %s", spec.Token)
		}

		r.specs[spec.Token] = spec
		r.tokens = append(r.tokens, spec.Token)
	}

	return r, nil
}

// Resolve returns the spec for the provided token.
func (r *Resolver) Resolve(token string) (shared.TimeframeSpec, error) {
	spec, ok := r.specs[token]
	if !ok {
		return shared.TimeframeSpec{}, fmt.Errorf("%w: %q", shared.ErrUnknownTimeframe, token)
	}

	return spec, nil
}

// Default returns the default timeframe spec.
func (r *Resolver) Default() shared.TimeframeSpec {
	if spec, ok := r.specs[preferredDefault]; ok {
		return spec
	}

	return r.specs[r.tokens[0]]
}

// Tokens returns the configured tokens in configuration order.
func (r *Resolver) Tokens() []string {
	tokens := make([]string, len(r.tokens))
	copy(tokens, r.tokens)
	return tokens
}

// Specs returns the configured specs in configuration order.
func (r *Resolver) Specs() []shared.TimeframeSpec {
	specs := make([]shared.TimeframeSpec, 0, len(r.tokens))
	for _, token := range r.tokens {
		specs = append(specs, r.specs[token])
	}

	return specs
}
