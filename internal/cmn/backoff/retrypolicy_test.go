package backoff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffPolicy(t *testing.T) {
	t.Parallel()

	t.Run("doubles the interval up to the cap", func(t *testing.T) {
		t.Parallel()

		policy := NewExponentialBackoffPolicy(100 * time.Millisecond)
		policy.MaxInterval = 500 * time.Millisecond

		want := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}
		for i, w := range want {
			got, err := policy.ComputeNextInterval(i, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, w, got, "retry %d", i)
		}
	})

	t.Run("stops after max retries", func(t *testing.T) {
		t.Parallel()

		policy := NewExponentialBackoffPolicy(time.Millisecond)
		policy.MaxRetries = 2

		_, err := policy.ComputeNextInterval(1, 0, nil)
		require.NoError(t, err)
		_, err = policy.ComputeNextInterval(2, 0, nil)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
	})
}

func TestRetrier(t *testing.T) {
	t.Parallel()

	t.Run("advances and resets the retry count", func(t *testing.T) {
		t.Parallel()

		policy := NewExponentialBackoffPolicy(10 * time.Millisecond)
		policy.MaxRetries = 2
		r := NewRetrier(policy)

		first, err := r.Next(errors.New("boom"))
		require.NoError(t, err)
		second, err := r.Next(errors.New("boom"))
		require.NoError(t, err)
		assert.Equal(t, 10*time.Millisecond, first)
		assert.Equal(t, 20*time.Millisecond, second)

		_, err = r.Next(errors.New("boom"))
		assert.ErrorIs(t, err, ErrRetriesExhausted)

		r.Reset()
		again, err := r.Next(errors.New("boom"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})
}

func TestWithJitter(t *testing.T) {
	t.Parallel()

	t.Run("full jitter stays within the base interval", func(t *testing.T) {
		t.Parallel()

		base := fixedInterval(100 * time.Millisecond)
		policy := WithJitter(base, FullJitter)
		for i := range 50 {
			got, err := policy.ComputeNextInterval(i, 0, nil)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, time.Duration(0))
			assert.LessOrEqual(t, got, 100*time.Millisecond)
		}
	})

	t.Run("exhaustion passes through", func(t *testing.T) {
		t.Parallel()

		base := fixedInterval(time.Millisecond)
		base.MaxRetries = 1
		policy := WithJitter(base, FullJitter)

		_, err := policy.ComputeNextInterval(1, 0, nil)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
	})
}
