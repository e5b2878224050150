package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Main.Name = "wavepulse"
	s.Main.Timezone = "US/Eastern"
	s.Recording = RecordingSettings{
		Enabled:         true,
		Schedule:        "weekly_schedule.yaml",
		SegmentDuration: 1800,
		Retries:         3,
		WaitTime:        60,
		ConnectTimeout:  10,
		IdleTimeout:     90,
		Tick:            30,
	}
	s.Scheduler = SchedulerSettings{
		Repetitions:  1,
		ShutdownTime: "03:00",
		RestartTime:  "03:10",
	}
	s.Downstream = DownstreamSettings{Transcription: true, Classification: true, Workers: 1}
	s.Assets = AssetsSettings{Root: "assets", Data: "data"}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"bad timezone", func(s *Settings) { s.Main.Timezone = "Mars/Olympus" }, "timezone"},
		{"zero segment duration", func(s *Settings) { s.Recording.SegmentDuration = 0 }, "segmentduration"},
		{"negative retries", func(s *Settings) { s.Recording.Retries = -1 }, "retries"},
		{"negative wait time", func(s *Settings) { s.Recording.WaitTime = -5 }, "waittime"},
		{"zero tick", func(s *Settings) { s.Recording.Tick = 0 }, "tick"},
		{"missing schedule", func(s *Settings) { s.Recording.Schedule = "" }, "schedule"},
		{"zero repetitions", func(s *Settings) { s.Scheduler.Repetitions = 0 }, "repetitions"},
		{"bad shutdown time", func(s *Settings) { s.Scheduler.ShutdownTime = "25:00" }, "shutdowntime"},
		{"bad restart time", func(s *Settings) { s.Scheduler.RestartTime = "3pm" }, "restarttime"},
		{"zero downstream workers", func(s *Settings) { s.Downstream.Workers = 0 }, "workers"},
		{"backup enabled without host", func(s *Settings) { s.Backup.Enabled = true }, "backup.host"},
		{"telemetry enabled without listen", func(s *Settings) { s.Telemetry.Enabled = true }, "telemetry.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseClockTime(t *testing.T) {
	t.Parallel()

	h, m, err := ParseClockTime("22:45")
	require.NoError(t, err)
	assert.Equal(t, 22, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClockTime("24:00")
	assert.Error(t, err)
	_, _, err = ParseClockTime("0800")
	assert.Error(t, err)
}

func TestTimeLocation(t *testing.T) {
	t.Parallel()

	s := validSettings()
	loc, err := s.TimeLocation()
	require.NoError(t, err)
	assert.Equal(t, "US/Eastern", loc.String())
}
