package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, value string) ClockTime {
	t.Helper()
	c, err := ParseClock(value)
	require.NoError(t, err)
	return c
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 10, 14, hour, minute, 0, 0, time.UTC)
}

func TestWindowContains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window Window
		hour   int
		minute int
		want   bool
	}{
		{"inside day window", Window{mustClock(t, "08:00"), mustClock(t, "10:00")}, 9, 0, true},
		{"at start is active", Window{mustClock(t, "08:00"), mustClock(t, "10:00")}, 8, 0, true},
		{"at end is inactive", Window{mustClock(t, "08:00"), mustClock(t, "10:00")}, 10, 0, false},
		{"before start", Window{mustClock(t, "08:00"), mustClock(t, "10:00")}, 7, 59, false},
		{"wrap active before midnight", Window{mustClock(t, "22:00"), mustClock(t, "02:00")}, 23, 30, true},
		{"wrap active after midnight", Window{mustClock(t, "22:00"), mustClock(t, "02:00")}, 1, 0, true},
		{"wrap inactive midday", Window{mustClock(t, "22:00"), mustClock(t, "02:00")}, 3, 0, false},
		{"wrap end is inactive", Window{mustClock(t, "22:00"), mustClock(t, "02:00")}, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.window.Contains(tt.hour*60 + tt.minute)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStationIsActive(t *testing.T) {
	t.Parallel()

	station := Station{
		Name:  "WXYZ",
		State: "MI",
		Windows: []Window{
			{mustClock(t, "06:00"), mustClock(t, "09:00")},
			{mustClock(t, "22:00"), mustClock(t, "02:00")},
		},
	}

	assert.True(t, station.IsActive(at(7, 30)))
	assert.True(t, station.IsActive(at(23, 30)))
	assert.True(t, station.IsActive(at(1, 0)))
	assert.False(t, station.IsActive(at(3, 0)))
	assert.False(t, station.IsActive(at(12, 0)))
	assert.False(t, station.IsActive(at(9, 0)))
}

func TestStationIsActiveDeterministic(t *testing.T) {
	t.Parallel()

	station := Station{
		Name:    "KFNX",
		State:   "AZ",
		Windows: []Window{{mustClock(t, "08:00"), mustClock(t, "08:02")}},
	}

	now := at(8, 1)
	for range 10 {
		assert.True(t, station.IsActive(now))
	}
}

func TestWindowDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2*time.Hour, Window{mustClock(t, "08:00"), mustClock(t, "10:00")}.Duration())
	assert.Equal(t, 4*time.Hour, Window{mustClock(t, "22:00"), mustClock(t, "02:00")}.Duration())
}

func TestStationID(t *testing.T) {
	t.Parallel()

	s := Station{Name: "WABC", State: "NY"}
	assert.Equal(t, "NY_WABC", s.ID())

	s = Station{Name: "WABC"}
	assert.Equal(t, "WABC", s.ID())
}
