// Package clock provides a minimal wall-clock abstraction so that the
// scheduler and capture workers can be driven by a simulated clock in tests.
package clock

import "time"

// Clock is the time source used by components that sleep or measure
// elapsed wall-clock time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// System is a Clock backed by the real time package.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time { return time.Now() }

// After waits for the duration to elapse and then delivers the current time.
func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }
