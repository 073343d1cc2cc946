package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Delay(t *testing.T) {
	policy := Reconnect()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{10, 500 * time.Millisecond},
		{39, 1950 * time.Millisecond},
		{40, 2 * time.Second},
		{41, 2 * time.Second},
		{1 << 40, 2 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestLinear_ZeroValues(t *testing.T) {
	assert.Equal(t, time.Duration(0), Linear{}.Delay(5))
	assert.Equal(t, 500*time.Millisecond, Linear{Step: 100 * time.Millisecond}.Delay(5))
}

func TestForever_SucceedsEventually(t *testing.T) {
	policy := Linear{Step: time.Millisecond, Max: 5 * time.Millisecond}

	var seen []int
	err := Forever(context.Background(), policy, func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 4 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestForever_NonRetryable(t *testing.T) {
	stop := errors.New("closed")
	attempts := 0

	err := Forever(context.Background(), Reconnect(), func(int) error {
		attempts++
		return NonRetryable(stop)
	})

	require.Error(t, err)
	assert.True(t, IsNonRetryable(err))
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, attempts)
}

func TestForever_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Linear{Step: 20 * time.Millisecond, Max: 20 * time.Millisecond}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Forever(ctx, policy, func(int) error {
		return errors.New("unreachable")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
