package resiliency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestRetryGetReturnsFirstSuccess(t *testing.T) {
	t.Parallel()

	attempts := 0
	val, err := RetryGet(context.Background(), newTestBackOff(), func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	require.Equal(t, 42, val)
	require.Equal(t, 3, attempts)
}

func TestRetryGetStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanentErr := errors.New("bad input")
	attempts := 0
	_, err := RetryGet(context.Background(), newTestBackOff(), func() (int, error) {
		attempts++
		return 0, Permanent(permanentErr)
	})

	require.ErrorIs(t, err, permanentErr)
	require.Equal(t, 1, attempts)
}

func TestRunWithTimeout(t *testing.T) {
	t.Parallel()

	require.True(t, RunWithTimeout(func() {}, time.Second))
	require.False(t, RunWithTimeout(func() { time.Sleep(time.Second) }, 20*time.Millisecond))
}

func newTestBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Millisecond),
		backoff.WithMaxInterval(5*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
}
