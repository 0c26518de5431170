package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func TestRetryConfigValidate(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.NoError(t, cfg.Validate())

	cfg = RetryConfig{MaxAttempts: 0, InitialInterval: time.Second, MaxInterval: time.Millisecond}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestRetry(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure an unavailable source is retried until it succeeds.
	var calls int
	err := retry(context.Background(), fastRetry(), &logger, func() error {
		calls++
		if calls < 2 {
			return &shared.SourceUnavailableError{StatusCode: 502}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, calls, 2)

	// Ensure other failures are returned after a single attempt.
	calls = 0
	err = retry(context.Background(), fastRetry(), &logger, func() error {
		calls++
		return shared.ErrMalformedResponse
	})
	assert.True(t, errors.Is(err, shared.ErrMalformedResponse))
	assert.Equal(t, calls, 1)

	// Ensure a single attempt policy never retries.
	calls = 0
	single := RetryConfig{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	err = retry(context.Background(), single, &logger, func() error {
		calls++
		return &shared.SourceUnavailableError{StatusCode: 500}
	})
	assert.True(t, shared.IsSourceUnavailable(err))
	assert.Equal(t, calls, 1)
}
