package syncjob

import "time"

// DefaultMaxRetryDelay caps the backoff of a single reschedule
const DefaultMaxRetryDelay = 30 * time.Minute

// RetryPolicy computes the reschedule delay of retry number n (1-based):
// BaseDelay * 2^(n-1), capped at MaxDelay. A zero BaseDelay re-queues immediately.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: 30 * time.Second,
		MaxDelay:  DefaultMaxRetryDelay,
	}
}

// Delay returns the wait before the given retry
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 || retry <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}
	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
