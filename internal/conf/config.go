// config.go: This file contains the configuration for the wavepulse capture
// core. It defines the settings struct and functions to load the settings.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RecordingSettings contains settings for stream capture and segment rotation.
type RecordingSettings struct {
	Enabled         bool   // true to enable the capture subsystem
	Schedule        string // roster file with station descriptors, relative to assets root
	SegmentDuration int    // duration of one recorded segment in seconds
	Retries         int    // retry attempts per connection loss before giving up
	WaitTime        int    // wait time between consecutive retries in seconds
	ConnectTimeout  int    // connect timeout for stream endpoints in seconds
	IdleTimeout     int    // stalled stream detection timeout in seconds
	Tick            int    // scheduler evaluation tick interval in seconds
}

// SchedulerSettings contains settings for the daily shutdown/restart cycle.
type SchedulerSettings struct {
	Repetitions  int    // number of schedule cycles to run before terminating
	ShutdownTime string // local time "HH:MM" when the current cycle shuts down
	RestartTime  string // local time "HH:MM" when the next cycle starts
}

// DownstreamSettings contains pass-through toggles for external stages and
// the buffer directory fan-out used by the segment handoff.
type DownstreamSettings struct {
	Transcription  bool // pass-through toggle, consumed by the transcription stage
	Classification bool // pass-through toggle, consumed by the classification stage
	Workers        int  // number of audio_buffer_<i> handoff directories
}

// AssetsSettings locates the on-disk layout all components resolve against.
type AssetsSettings struct {
	Root string // base assets directory
	Data string // data directory under the assets root
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus compatible telemetry endpoint
	Listen  string // IP address and port to listen on
}

// BackupSettings contains settings for the FTP export of finalized recordings.
type BackupSettings struct {
	Enabled      bool   // true to upload finalized recordings after each cycle
	Host         string // ftp server host
	Port         int    // ftp server port
	Username     string // ftp username
	Password     string // ftp password
	RemoteFolder string // remote folder for uploaded recordings
	Timeout      int    // connection timeout in seconds
	MaxRetries   int    // upload retry attempts per file
}

// Settings contains all configuration options for the wavepulse capture core.
type Settings struct {
	Debug bool // true to enable debug mode

	Version string `yaml:"-"` // Version from build, runtime value

	Main struct {
		Name     string    // name of this node, used to identify the log source
		Timezone string    // IANA timezone used for window evaluation and cycle boundaries
		Log      LogConfig // logging configuration
	}

	Recording  RecordingSettings  // capture and segment rotation settings
	Scheduler  SchedulerSettings  // cycle boundary settings
	Downstream DownstreamSettings // downstream stage toggles and handoff fan-out
	Assets     AssetsSettings     // directory layout settings
	Telemetry  TelemetrySettings  // telemetry endpoint settings
	Backup     BackupSettings     // recordings backup settings
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // path to the log file
	Rotation    RotationType // type of log rotation
	MaxSize     int64        // max size in bytes for RotationSize
	RotationDay string       // day of the week for RotationWeekly
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper sets up the viper instance: config locations, env overrides and
// defaults. A missing config file is not an error, defaults apply.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("WAVEPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// LoadFile reloads the settings from an explicitly named config file,
// bypassing the default search paths. Used by the --config flag.
func LoadFile(path string, settings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return nil
}

// Setting returns the current settings instance, loading it if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	instance := settingsInstance
	settingsMutex.RUnlock()

	if instance == nil {
		loaded, err := Load()
		if err != nil {
			return nil
		}
		return loaded
	}
	return instance
}

// TimeLocation resolves the configured timezone.
func (s *Settings) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Main.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Main.Timezone, err)
	}
	return loc, nil
}

// ParseClockTime parses a "HH:MM" string into hour and minute components.
func ParseClockTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}
