package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestWithRetrySucceedsAfterServerErrors(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &StatusError{Service: "test", Code: 503}
		}
		return nil
	}, nil, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnFatal(t *testing.T) {
	calls := 0
	cause := &StatusError{Service: "test", Code: 400}
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return Fatal(cause)
	}, nil, fastConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode())
}

func TestWithRetryMaxAttemptsWrapsLastError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return boom
	}, nil, fastConfig(2))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return nil }, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAdaptiveLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)

	lim.RateLimited()
	assert.InDelta(t, 2.0, lim.CurrentLimit(), 0.001)

	lim.RateLimited()
	lim.RateLimited()
	assert.InDelta(t, 1.0, lim.CurrentLimit(), 0.001)

	// errors seen recently keep the rate down
	lim.Success()
	assert.InDelta(t, 1.0, lim.CurrentLimit(), 0.001)
}

func TestRateLimitClassification(t *testing.T) {
	assert.True(t, DefaultClassifier(&StatusError{Code: 429}))
	assert.True(t, DefaultClassifier(&StatusError{Code: 502}))
	assert.False(t, DefaultClassifier(&StatusError{Code: 404}))
	assert.False(t, DefaultClassifier(errors.New("plain")))
}
