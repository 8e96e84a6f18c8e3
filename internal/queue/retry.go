package queue

import "time"

// RetryPolicy describes exponential redelivery backoff for failed messages.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy is a first attempt plus three retries, 10s doubling up to 10m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   10 * time.Second,
		MaxDelay:    10 * time.Minute,
		MaxAttempts: 4,
	}
}

// Delay returns the wait before the next delivery after the given 1-based attempt failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether no attempts remain after the given attempt.
func (p RetryPolicy) Exhausted(attempt int) bool {
	if p.MaxAttempts <= 0 {
		return false
	}
	return attempt >= p.MaxAttempts
}
