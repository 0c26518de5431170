package shared

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// DefaultRefetchInterval is the default interval between cadence refetches.
	DefaultRefetchInterval = time.Minute * 5
	// DefaultStaleAfter is the default age after which a fetched series is considered stale.
	DefaultStaleAfter = time.Minute
)

// TimeframeSpec represents a resolved timeframe token.
type TimeframeSpec struct {
	// Token is the logical timeframe token, e.g. "15m".
	Token string `yaml:"token"`
	// Label is the display label.
	Label string `yaml:"label"`
	// LookbackDays is the lookback window requested from the data source.
	LookbackDays float64 `yaml:"days"`
	// RefetchInterval is the cadence at which the series is refetched.
	RefetchInterval time.Duration `yaml:"refetch"`
	// StaleAfter is the age below which a fetched series is reused instead of refetched.
	StaleAfter time.Duration `yaml:"stale"`
}

// String stringifies the provided timeframe spec.
func (s TimeframeSpec) String() string {
	return s.Token
}

// Days returns the lookback window formatted as a query parameter.
func (s TimeframeSpec) Days() string {
	return strconv.FormatFloat(s.LookbackDays, 'f', -1, 64)
}

// Validate asserts the timeframe spec is sane.
func (s TimeframeSpec) Validate() error {
	switch {
	case s.Token == "":
		return fmt.Errorf("timeframe token cannot be an empty string")
	case s.LookbackDays <= 0:
		return fmt.Errorf("%s: lookback days must be positive, got %v", s.Token, s.LookbackDays)
	case s.RefetchInterval <= 0:
		return fmt.Errorf("%s: refetch interval must be positive, got %v", s.Token, s.RefetchInterval)
	case s.StaleAfter < 0:
		return fmt.Errorf("%s: stale threshold cannot be negative, got %v", s.Token, s.StaleAfter)
	}

	return nil
}
