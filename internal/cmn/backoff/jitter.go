package backoff

import (
	"math/rand/v2"
	"time"
)

// JitterFunc randomizes an interval computed by a policy.
type JitterFunc func(interval time.Duration) time.Duration

// FullJitter picks a random interval in [0, interval].
func FullJitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(interval) + 1))
}

// WithJitter wraps policy so that every computed interval is passed through jitter.
func WithJitter(policy RetryPolicy, jitter JitterFunc) RetryPolicy {
	return &jitteredPolicy{base: policy, jitter: jitter}
}

type jitteredPolicy struct {
	base   RetryPolicy
	jitter JitterFunc
}

func (p *jitteredPolicy) ComputeNextInterval(retryCount int, elapsed time.Duration, err error) (time.Duration, error) {
	interval, computeErr := p.base.ComputeNextInterval(retryCount, elapsed, err)
	if computeErr != nil {
		return 0, computeErr
	}
	return p.jitter(interval), nil
}
