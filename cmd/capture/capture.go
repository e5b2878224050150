// Package capture implements the capture subcommand, the long-running
// daemon that records scheduled livestreams.
package capture

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wavepulse/wavepulse-go/internal/backup"
	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/logging"
	"github.com/wavepulse/wavepulse-go/internal/observability"
	"github.com/wavepulse/wavepulse-go/internal/scheduler"
)

// Command creates the capture subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Run the stream capture scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapture(cmd.Context(), settings)
		},
	}
}

func runCapture(ctx context.Context, settings *conf.Settings) error {
	if !settings.Recording.Enabled {
		// A disabled component is a valid configuration, not an init failure.
		logging.ForService("capture").Info("recording is disabled, nothing to capture")
		return nil
	}

	paths := conf.ResolvePaths(settings)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	logger, closeLogger, err := buildLogger(settings, paths)
	if err != nil {
		return err
	}
	if closeLogger != nil {
		defer func() { _ = closeLogger() }()
	}

	var metrics *observability.CaptureMetrics
	if settings.Telemetry.Enabled {
		registry := prometheus.NewRegistry()
		metrics, err = observability.NewCaptureMetrics(registry)
		if err != nil {
			return err
		}
		endpoint := observability.NewEndpoint(settings.Telemetry.Listen, registry, logger)
		endpoint.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = endpoint.Shutdown(shutdownCtx)
		}()
	}

	var recordingsBackup scheduler.RecordingsBackup
	if settings.Backup.Enabled {
		recordingsBackup, err = backup.NewFTPUploader(settings.Backup, logger)
		if err != nil {
			return err
		}
	}

	sched, err := scheduler.New(settings, paths, scheduler.Options{
		Logger:  logger,
		Metrics: metrics,
		Backup:  recordingsBackup,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("wavepulse capture starting",
		"node", settings.Main.Name,
		"version", settings.Version,
		"timezone", settings.Main.Timezone,
		"assets", settings.Assets.Root)

	return sched.Run(ctx)
}

// buildLogger returns the capture service logger: a rotating file logger
// when configured, the shared structured logger otherwise.
func buildLogger(settings *conf.Settings, paths *conf.Paths) (*slog.Logger, func() error, error) {
	if !settings.Main.Log.Enabled {
		return logging.ForService("capture"), nil, nil
	}

	logPath := settings.Main.Log.Path
	if logPath == "" {
		logPath = filepath.Join(paths.LogsDir, "capture.log")
	}
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	return logging.NewFileLogger(logPath, "capture", level, &settings.Main.Log)
}
