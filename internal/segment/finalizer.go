package segment

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/errors"
	"github.com/wavepulse/wavepulse-go/internal/observability"
)

// consecutiveFailureAlertThreshold is the number of consecutive flush
// failures for one station after which the fault is treated as systemic
// rather than transient.
const consecutiveFailureAlertThreshold = 3

// Finalizer atomically publishes completed segments from the private write
// buffer into the recordings area and emits the handoff copy for downstream
// consumers. A single flush failure discards that segment and capture
// continues.
type Finalizer struct {
	paths    *conf.Paths
	registry *SequenceRegistry
	logger   *slog.Logger
	metrics  *observability.CaptureMetrics

	mu            sync.Mutex
	flushFailures map[string]int
}

// NewFinalizer creates a finalizer for one ScheduleCycle. metrics may be nil.
func NewFinalizer(paths *conf.Paths, registry *SequenceRegistry, logger *slog.Logger, metrics *observability.CaptureMetrics) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		paths:         paths,
		registry:      registry,
		logger:        logger,
		metrics:       metrics,
		flushFailures: make(map[string]int),
	}
}

// Registry returns the cycle's sequence registry.
func (f *Finalizer) Registry() *SequenceRegistry {
	return f.registry
}

// Finalize flushes the writer and publishes the segment with a single atomic
// rename, so downstream consumers never observe a partially written file.
// An empty writer is discarded and returns (nil, nil). The flush happens
// under the station's sequence lock, so publication order equals sequence
// order and failed flushes leave no sequence gap.
func (f *Finalizer) Finalize(w *Writer, now time.Time) (*Segment, error) {
	stationID := w.StationID()

	if w.Bytes() == 0 {
		_ = w.Discard()
		return nil, nil
	}

	start := w.Start()
	if start.IsZero() {
		start = now
	}
	bytes := w.Bytes()

	bufferPath, err := w.flushAndClose()
	if err != nil {
		_ = w.Discard()
		return nil, f.recordFlushFailure(stationID, err)
	}

	var publishedPath string
	seq, err := f.registry.Publish(stationID, func(seq uint64) error {
		publishedPath = filepath.Join(f.paths.RecordingsDir, FileName(stationID, start, seq))
		return os.Rename(bufferPath, publishedPath)
	})
	if err != nil {
		_ = os.Remove(bufferPath)
		return nil, f.recordFlushFailure(stationID, err)
	}

	f.resetFlushFailures(stationID)

	seg := &Segment{
		StationID: stationID,
		Sequence:  seq,
		Start:     start,
		Duration:  now.Sub(start),
		Path:      publishedPath,
		Bytes:     bytes,
	}

	f.metrics.SegmentFinalized(stationID, bytes)
	f.logger.Info("segment finalized",
		"station", stationID,
		"sequence", seq,
		"bytes", bytes,
		"duration", seg.Duration.Round(time.Second).String(),
		"path", publishedPath)

	// Handoff to downstream is fire-and-forget: a copy failure never fails
	// the already-published segment.
	f.copyToBufferDir(seg)

	return seg, nil
}

// recordFlushFailure tracks consecutive flush failures per station and
// escalates once they look systemic (disk full, permissions) rather than
// transient.
func (f *Finalizer) recordFlushFailure(stationID string, cause error) error {
	f.mu.Lock()
	f.flushFailures[stationID]++
	count := f.flushFailures[stationID]
	f.mu.Unlock()

	f.metrics.FinalizeFailed(stationID)

	if count >= consecutiveFailureAlertThreshold {
		f.logger.Error("repeated segment flush failures, storage fault is likely systemic",
			"station", stationID,
			"consecutive_failures", count,
			"error", cause)
	} else {
		f.logger.Warn("segment flush failed, discarding segment",
			"station", stationID,
			"consecutive_failures", count,
			"error", cause)
	}

	return errors.New(cause).
		Category(errors.CategorySegmentFinalize).
		Context("station", stationID).
		Context("consecutive_failures", count).
		Build()
}

func (f *Finalizer) resetFlushFailures(stationID string) {
	f.mu.Lock()
	delete(f.flushFailures, stationID)
	f.mu.Unlock()
}

// ConsecutiveFlushFailures returns the current failure streak for a station.
func (f *Finalizer) ConsecutiveFlushFailures(stationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushFailures[stationID]
}

// copyToBufferDir copies a published segment into the least-loaded
// audio_buffer_<i> directory so downstream transcription workers share the
// load evenly.
func (f *Finalizer) copyToBufferDir(seg *Segment) {
	if len(f.paths.BufferDirs) == 0 {
		return
	}

	target := f.leastLoadedBufferDir()
	if target == "" {
		f.logger.Warn("no usable handoff buffer directory", "station", seg.StationID)
		return
	}

	dst := filepath.Join(target, filepath.Base(seg.Path))
	if err := copyFile(seg.Path, dst); err != nil {
		f.logger.Warn("handoff copy failed",
			"station", seg.StationID,
			"target", dst,
			"error", err)
		return
	}

	f.logger.Debug("segment handed off", "station", seg.StationID, "target", dst)
}

// leastLoadedBufferDir returns the handoff directory with the fewest
// pending files.
func (f *Finalizer) leastLoadedBufferDir() string {
	best := ""
	bestCount := -1
	for _, dir := range f.paths.BufferDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if bestCount < 0 || len(entries) < bestCount {
			best = dir
			bestCount = len(entries)
		}
	}
	return best
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
