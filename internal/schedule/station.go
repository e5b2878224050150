// Package schedule loads the station roster and evaluates per-station
// recording windows against wall-clock time.
package schedule

import (
	"fmt"
	"time"
)

// ClockTime is a minute-resolution time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a "HH:MM" string into a ClockTime.
func ParseClock(value string) (ClockTime, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q, expected HH:MM: %w", value, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MinuteOfDay returns the time as minutes since midnight.
func (c ClockTime) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// String renders the time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Window is a half-open [Start,End) local-time interval during which a
// station should be recorded. A window whose end is not after its start
// wraps past midnight.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// CrossesMidnight reports whether the window wraps past midnight.
func (w Window) CrossesMidnight() bool {
	return w.End.MinuteOfDay() <= w.Start.MinuteOfDay()
}

// Contains reports whether the given minute of day falls inside the window.
// A wrapping window is evaluated as a same-day pair plus a wrapped pair.
func (w Window) Contains(minuteOfDay int) bool {
	start := w.Start.MinuteOfDay()
	end := w.End.MinuteOfDay()
	if w.CrossesMidnight() {
		return minuteOfDay >= start || minuteOfDay < end
	}
	return minuteOfDay >= start && minuteOfDay < end
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	start := w.Start.MinuteOfDay()
	end := w.End.MinuteOfDay()
	if w.CrossesMidnight() {
		end += 24 * 60
	}
	return time.Duration(end-start) * time.Minute
}

// String renders the window as "[HH:MM,HH:MM)".
func (w Window) String() string {
	return fmt.Sprintf("[%s,%s)", w.Start, w.End)
}

// Station is one configured radio livestream source. The descriptor is
// immutable once loaded; a roster reload produces fresh values.
type Station struct {
	Name    string   // station callsign, e.g. "WABC"
	State   string   // region/state tag, e.g. "NY"
	URL     string   // livestream URL
	Windows []Window // ordered, non-overlapping recording windows
}

// ID returns the station identifier used in file names and logs, in the
// original state-prefixed form, e.g. "NY_WABC".
func (s *Station) ID() string {
	if s.State == "" {
		return s.Name
	}
	return s.State + "_" + s.Name
}

// IsActive reports whether the station should be recording at the given
// time. The caller is responsible for converting now into the configured
// timezone; evaluation is a pure function of the wall clock and the window
// list.
func (s *Station) IsActive(now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()
	for _, w := range s.Windows {
		if w.Contains(minute) {
			return true
		}
	}
	return false
}
