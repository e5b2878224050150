// validate.go: startup-time validation of the loaded settings. Validation
// failures here are the only errors treated as process-fatal.
package conf

import (
	"fmt"
	"time"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values the capture core
// cannot operate with.
func ValidateSettings(s *Settings) error {
	if err := validateMainSettings(s); err != nil {
		return err
	}
	if err := validateRecordingSettings(&s.Recording); err != nil {
		return err
	}
	if err := validateSchedulerSettings(&s.Scheduler); err != nil {
		return err
	}
	if err := validateDownstreamSettings(&s.Downstream); err != nil {
		return err
	}
	if err := validateTelemetrySettings(&s.Telemetry); err != nil {
		return err
	}
	return validateBackupSettings(&s.Backup)
}

func validateMainSettings(s *Settings) error {
	if s.Main.Name == "" {
		return configError("main.name must not be empty")
	}
	if _, err := time.LoadLocation(s.Main.Timezone); err != nil {
		return errors.Newf("main.timezone %q is not a valid IANA timezone", s.Main.Timezone).
			Category(errors.CategoryConfiguration).
			Context("timezone", s.Main.Timezone).
			Build()
	}
	return nil
}

func validateRecordingSettings(r *RecordingSettings) error {
	if r.SegmentDuration <= 0 {
		return configError(fmt.Sprintf("recording.segmentduration must be positive, got %d", r.SegmentDuration))
	}
	if r.Retries < 0 {
		return configError(fmt.Sprintf("recording.retries must not be negative, got %d", r.Retries))
	}
	if r.WaitTime < 0 {
		return configError(fmt.Sprintf("recording.waittime must not be negative, got %d", r.WaitTime))
	}
	if r.ConnectTimeout <= 0 {
		return configError(fmt.Sprintf("recording.connecttimeout must be positive, got %d", r.ConnectTimeout))
	}
	if r.IdleTimeout <= 0 {
		return configError(fmt.Sprintf("recording.idletimeout must be positive, got %d", r.IdleTimeout))
	}
	if r.Tick <= 0 {
		return configError(fmt.Sprintf("recording.tick must be positive, got %d", r.Tick))
	}
	if r.Enabled && r.Schedule == "" {
		return configError("recording.schedule must point to a roster file when recording is enabled")
	}
	return nil
}

func validateSchedulerSettings(s *SchedulerSettings) error {
	if s.Repetitions < 1 {
		return configError(fmt.Sprintf("scheduler.repetitions must be at least 1, got %d", s.Repetitions))
	}
	if _, _, err := ParseClockTime(s.ShutdownTime); err != nil {
		return configError(fmt.Sprintf("scheduler.shutdowntime: %v", err))
	}
	if _, _, err := ParseClockTime(s.RestartTime); err != nil {
		return configError(fmt.Sprintf("scheduler.restarttime: %v", err))
	}
	return nil
}

func validateDownstreamSettings(d *DownstreamSettings) error {
	if d.Workers < 1 {
		return configError(fmt.Sprintf("downstream.workers must be at least 1, got %d", d.Workers))
	}
	return nil
}

func validateTelemetrySettings(t *TelemetrySettings) error {
	if t.Enabled && t.Listen == "" {
		return configError("telemetry.listen must be set when telemetry is enabled")
	}
	return nil
}

func validateBackupSettings(b *BackupSettings) error {
	if !b.Enabled {
		return nil
	}
	if b.Host == "" {
		return configError("backup.host must be set when backup is enabled")
	}
	if b.Port <= 0 || b.Port > 65535 {
		return configError(fmt.Sprintf("backup.port must be a valid port, got %d", b.Port))
	}
	return nil
}

func configError(msg string) error {
	return errors.Newf("%s", msg).
		Category(errors.CategoryConfiguration).
		Build()
}
