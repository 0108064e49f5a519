package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	}, Config{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("locked")
	err := Do(context.Background(), func() error {
		calls++
		return boom
	}, Config{MaxAttempts: 3, BaseDelay: time.Millisecond})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New("bad symbol"))
	}, Config{MaxAttempts: 5, BaseDelay: time.Millisecond, RetryIf: IsRetryable})

	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return nil }, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(Permanent(errors.New("x"))))
	assert.True(t, IsRetryable(Temporary(errors.New("x"))))
	assert.True(t, IsRetryable(errors.New("unknown")))
}

func TestOnRetryCallback(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), func() error {
		return errors.New("nope")
	}, Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry:     func(attempt int, err error, d time.Duration) { attempts = append(attempts, attempt) },
	})

	assert.Equal(t, []int{1, 2}, attempts)
}
