// defaults.go: default values applied before the config file is read.
package conf

import "github.com/spf13/viper"

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main
	viper.SetDefault("main.name", "wavepulse")
	viper.SetDefault("main.timezone", "US/Eastern")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "wavepulse.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 100*1024*1024)
	viper.SetDefault("main.log.rotationday", "Sunday")

	// Recording
	viper.SetDefault("recording.enabled", true)
	viper.SetDefault("recording.schedule", "weekly_schedule.yaml")
	viper.SetDefault("recording.segmentduration", 1800)
	viper.SetDefault("recording.retries", 3)
	viper.SetDefault("recording.waittime", 60)
	viper.SetDefault("recording.connecttimeout", 10)
	viper.SetDefault("recording.idletimeout", 90)
	viper.SetDefault("recording.tick", 30)

	// Scheduler
	viper.SetDefault("scheduler.repetitions", 1)
	viper.SetDefault("scheduler.shutdowntime", "03:00")
	viper.SetDefault("scheduler.restarttime", "03:10")

	// Downstream
	viper.SetDefault("downstream.transcription", true)
	viper.SetDefault("downstream.classification", true)
	viper.SetDefault("downstream.workers", 1)

	// Assets
	viper.SetDefault("assets.root", "assets")
	viper.SetDefault("assets.data", "data")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	// Backup
	viper.SetDefault("backup.enabled", false)
	viper.SetDefault("backup.port", 21)
	viper.SetDefault("backup.remotefolder", "daily_recordings")
	viper.SetDefault("backup.timeout", 30)
	viper.SetDefault("backup.maxretries", 3)
}
