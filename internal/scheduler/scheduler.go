// Package scheduler drives the station roster through its daily cycle: it
// evaluates recording windows on a fixed tick, starts and stops capture
// workers, enforces the shutdown/restart boundary and repeats for the
// configured number of cycles.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wavepulse/wavepulse-go/internal/capture"
	"github.com/wavepulse/wavepulse-go/internal/clock"
	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/diskmanager"
	"github.com/wavepulse/wavepulse-go/internal/errors"
	"github.com/wavepulse/wavepulse-go/internal/observability"
	"github.com/wavepulse/wavepulse-go/internal/schedule"
	"github.com/wavepulse/wavepulse-go/internal/segment"
)

// admissionPerWorker bounds how many concurrent captures each configured
// downstream worker is assumed to keep up with. Zero downstream workers
// means no admission bound.
const admissionPerWorker = 50

// RecordingsBackup exports the published recordings after a cycle ends.
type RecordingsBackup interface {
	UploadRecordings(ctx context.Context, localDir string) error
}

// Options carries the scheduler's optional collaborators. Zero values select
// the production defaults.
type Options struct {
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *observability.CaptureMetrics
	Backup        RecordingsBackup
	SourceFactory func(url string) capture.Source
}

// Scheduler owns the schedule loop. One Scheduler runs one Run call.
type Scheduler struct {
	settings *conf.Settings
	paths    *conf.Paths
	loc      *time.Location

	shutdown schedule.ClockTime
	restart  schedule.ClockTime
	tick     time.Duration

	clk           clock.Clock
	logger        *slog.Logger
	metrics       *observability.CaptureMetrics
	backup        RecordingsBackup
	sourceFactory func(url string) capture.Source

	live   atomic.Int32
	cycles atomic.Int32
}

// New builds a scheduler from validated settings.
func New(settings *conf.Settings, paths *conf.Paths, opts Options) (*Scheduler, error) {
	loc, err := settings.TimeLocation()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Build()
	}

	shutdown, err := schedule.ParseClock(settings.Scheduler.ShutdownTime)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("setting", "scheduler.shutdowntime").
			Build()
	}
	restart, err := schedule.ParseClock(settings.Scheduler.RestartTime)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("setting", "scheduler.restarttime").
			Build()
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		settings:      settings,
		paths:         paths,
		loc:           loc,
		shutdown:      shutdown,
		restart:       restart,
		tick:          time.Duration(settings.Recording.Tick) * time.Second,
		clk:           clk,
		logger:        logger,
		metrics:       opts.Metrics,
		backup:        opts.Backup,
		sourceFactory: opts.SourceFactory,
	}, nil
}

// LiveWorkers returns the number of currently running capture workers.
func (s *Scheduler) LiveWorkers() int { return int(s.live.Load()) }

// Cycles returns the number of completed schedule cycles.
func (s *Scheduler) Cycles() int { return int(s.cycles.Load()) }

// Run executes the configured number of schedule cycles. A non-positive
// repetition count runs until the context is canceled. Cancellation drains
// all workers and returns nil; only unrecoverable initialization faults
// (an unusable roster) return an error.
func (s *Scheduler) Run(ctx context.Context) error {
	reps := s.settings.Scheduler.Repetitions

	for i := 1; reps <= 0 || i <= reps; i++ {
		restartAt, err := s.runCycle(ctx, i)
		if err != nil {
			return err
		}
		s.cycles.Add(1)
		if ctx.Err() != nil {
			return nil
		}

		last := reps > 0 && i == reps
		if last {
			break
		}

		s.logger.Info("cycle complete, waiting for restart time",
			"cycle", i,
			"restart_at", restartAt.Format(time.RFC3339))
		if !s.sleepUntil(ctx, restartAt) {
			return nil
		}
	}

	s.logger.Info("all schedule cycles complete", "cycles", s.cycles.Load())
	return nil
}

// runCycle runs one repetition until the shutdown boundary and returns the
// instant the next cycle should start.
func (s *Scheduler) runCycle(ctx context.Context, index int) (time.Time, error) {
	now := s.clk.Now().In(s.loc)

	c := &cycle{
		id:         newCycleID(),
		index:      index,
		startedAt:  now,
		shutdownAt: nextOccurrence(now, s.shutdown.Hour, s.shutdown.Minute),
		workers:    make(map[string]*capture.Worker),
		health:     make(chan capture.HealthEvent, 64),
	}
	logger := s.logger.With("cycle", c.id)

	roster, err := schedule.LoadRoster(s.paths.ScheduleFile, logger)
	if err != nil {
		return time.Time{}, err
	}
	c.roster = roster
	if err := roster.WriteProcessed(s.paths.ProcessedScheduleFile); err != nil {
		logger.Warn("cannot write processed roster", "error", err)
	}

	// Each cycle numbers its segments from scratch.
	c.finalizer = segment.NewFinalizer(s.paths, segment.NewSequenceRegistry(), logger, s.metrics)

	s.metrics.CycleStarted()
	s.checkDiskUsage(logger)
	logger.Info("schedule cycle started",
		"index", index,
		"stations", len(roster.Stations),
		"skipped", roster.Skipped,
		"shutdown_at", c.shutdownAt.Format(time.RFC3339))

	for {
		now = s.clk.Now().In(s.loc)
		if !now.Before(c.shutdownAt) {
			break
		}

		s.reconcile(ctx, c, now, logger)

		select {
		case <-ctx.Done():
			s.drainWorkers(c, logger)
			return time.Time{}, nil
		case ev := <-c.health:
			s.handleHealth(ev, logger)
		case <-s.clk.After(s.tick):
		}
	}

	logger.Info("shutdown boundary reached, draining workers", "live", c.liveCount())
	s.drainWorkers(c, logger)
	s.runBackup(ctx, logger)

	return nextOccurrence(c.shutdownAt, s.restart.Hour, s.restart.Minute), nil
}

// reconcile aligns the worker set with the windows that are active right
// now: it starts workers for in-window stations without one and stops
// workers whose station has left its window. Failed workers free their slot
// here, so an in-window station gets a replacement on the next pass.
func (s *Scheduler) reconcile(ctx context.Context, c *cycle, now time.Time, logger *slog.Logger) {
	c.purgeFinished()

	limit := 0
	if s.settings.Downstream.Workers > 0 {
		limit = s.settings.Downstream.Workers * admissionPerWorker
	}

	for i := range c.roster.Stations {
		st := &c.roster.Stations[i]
		id := st.ID()
		w, running := c.workers[id]

		switch {
		case st.IsActive(now) && !running:
			if limit > 0 && c.liveCount() >= limit {
				logger.Warn("admission limit reached, deferring station",
					"station", id,
					"limit", limit)
				continue
			}
			c.workers[id] = s.startWorker(ctx, c, st, logger)
		case !st.IsActive(now) && running:
			logger.Info("window closed, stopping capture", "station", id)
			w.Stop()
		}
	}

	s.live.Store(int32(c.liveCount()))
	s.metrics.SetActiveWorkers(c.liveCount())
}

func (s *Scheduler) startWorker(ctx context.Context, c *cycle, st *schedule.Station, logger *slog.Logger) *capture.Worker {
	rec := s.settings.Recording

	cfg := capture.Config{
		StationID:       st.ID(),
		URL:             st.URL,
		SegmentDuration: time.Duration(rec.SegmentDuration) * time.Second,
		ConnectTimeout:  time.Duration(rec.ConnectTimeout) * time.Second,
		IdleTimeout:     time.Duration(rec.IdleTimeout) * time.Second,
		Retry: capture.RetryPolicy{
			MaxAttempts: rec.Retries,
			WaitTime:    time.Duration(rec.WaitTime) * time.Second,
		},
	}

	var src capture.Source
	if s.sourceFactory != nil {
		src = s.sourceFactory(st.URL)
	}

	w := capture.NewWorker(cfg, capture.Deps{
		Source:    src,
		BufferDir: s.paths.AudioBufferDir,
		Finalizer: c.finalizer,
		Clock:     s.clk,
		Logger:    logger,
		Metrics:   s.metrics,
		Health:    c.health,
	})

	logger.Info("window open, starting capture", "station", st.ID(), "url", st.URL)
	w.Start(ctx)
	return w
}

func (s *Scheduler) handleHealth(ev capture.HealthEvent, logger *slog.Logger) {
	switch ev.State {
	case capture.StateFailed:
		logger.Error("station capture failed",
			"station", ev.StationID,
			"error", ev.Err)
	default:
		logger.Debug("station capture ended",
			"station", ev.StationID,
			"state", ev.State.String())
	}
}

// drainWorkers stops every live worker and waits until each one has flushed
// its in-flight segment.
func (s *Scheduler) drainWorkers(c *cycle, logger *slog.Logger) {
	var g errgroup.Group
	for _, w := range c.workers {
		w.Stop()
		g.Go(func() error {
			<-w.Done()
			return nil
		})
	}
	_ = g.Wait()

	c.workers = make(map[string]*capture.Worker)
	s.live.Store(0)
	s.metrics.SetActiveWorkers(0)
	logger.Info("all workers drained")
}

// diskUsageWarnPercent is the fill level at which a new cycle warns about
// storage pressure on the recordings volume.
const diskUsageWarnPercent = 90.0

func (s *Scheduler) checkDiskUsage(logger *slog.Logger) {
	usage, err := diskmanager.GetDiskUsage(s.paths.DataDir)
	if err != nil {
		logger.Warn("cannot determine disk usage", "path", s.paths.DataDir, "error", err)
		return
	}
	if usage >= diskUsageWarnPercent {
		logger.Error("recordings volume nearly full, segment flushes will start failing",
			"path", s.paths.DataDir,
			"usage_percent", usage)
		return
	}
	logger.Debug("disk usage checked", "path", s.paths.DataDir, "usage_percent", usage)
}

// runBackup exports the day's recordings after the cycle has fully drained.
// Backup failure never fails the cycle.
func (s *Scheduler) runBackup(ctx context.Context, logger *slog.Logger) {
	if s.backup == nil {
		return
	}
	if err := s.backup.UploadRecordings(ctx, s.paths.RecordingsDir); err != nil {
		logger.Error("recordings backup failed", "error", err)
		return
	}
	logger.Info("recordings backup complete")
}

// sleepUntil blocks until the target instant or context cancellation.
func (s *Scheduler) sleepUntil(ctx context.Context, target time.Time) bool {
	for {
		d := target.Sub(s.clk.Now())
		if d <= 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.clk.After(d):
		}
	}
}
