package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dnldd/candleview/shared"
	"github.com/rs/zerolog"
)

const (
	// defaultMaxAttempts is the default number of attempts made for a request.
	defaultMaxAttempts = 3
	// defaultInitialInterval is the default wait before the first retry.
	defaultInitialInterval = time.Second
	// defaultMaxInterval is the default cap on the wait between retries.
	defaultMaxInterval = time.Second * 30
)

// RetryConfig represents the retry policy for source unavailable failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialInterval is the wait before the first retry, doubled on every retry.
	InitialInterval time.Duration
	// MaxInterval caps the wait between retries.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     defaultMaxAttempts,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
	}
}

// Validate asserts the retry config is sane.
func (cfg *RetryConfig) Validate() error {
	var errs error

	if cfg.MaxAttempts < 1 {
		errs = errors.Join(errs, fmt.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts))
	}
	if cfg.InitialInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial retry interval must be positive"))
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		errs = errors.Join(errs, fmt.Errorf("max retry interval cannot be less than the initial interval"))
	}

	return errs
}

// newBackOff creates the backoff schedule for the provided retry config.
func newBackOff(ctx context.Context, cfg RetryConfig) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.MaxAttempts-1)), ctx)
}

// retry runs the provided operation under the retry policy. Only source unavailable
// failures are retried, every other failure is returned immediately.
func retry(ctx context.Context, cfg RetryConfig, logger *zerolog.Logger, op func() error) error {
	var attempt int
	operation := func() error {
		attempt++
		err := op()
		switch {
		case err == nil:
			return nil
		case shared.IsSourceUnavailable(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Msgf("attempt %d/%d failed, retrying in %s: %v", attempt, cfg.MaxAttempts, wait, err)
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, cfg), notify)
}
