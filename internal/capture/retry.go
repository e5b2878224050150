package capture

import "time"

// RetryPolicy is a fixed-interval connection retry budget. Attempts are
// counted consecutively: a successful stream resets the count, so a station
// that drops once an hour is retried indefinitely, while one that never
// answers fails after MaxAttempts tries.
type RetryPolicy struct {
	// MaxAttempts is the total number of consecutive connection attempts
	// before the worker gives up.
	MaxAttempts int
	// WaitTime is the fixed delay between attempts.
	WaitTime time.Duration
}

// ShouldRetry reports whether another attempt is allowed after the given
// number of consecutive failures.
func (p RetryPolicy) ShouldRetry(consecutiveFailures int) bool {
	return consecutiveFailures < p.MaxAttempts
}

// NextDelay returns the wait before the given attempt. The interval is fixed
// regardless of the attempt number; livestream endpoints are not hammered
// harder by waiting less, and the capture window is walltime-bounded anyway.
func (p RetryPolicy) NextDelay(attemptNumber int) time.Duration {
	return p.WaitTime
}
