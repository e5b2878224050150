package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/wavepulse/wavepulse-go/internal/clock"
	"github.com/wavepulse/wavepulse-go/internal/errors"
	"github.com/wavepulse/wavepulse-go/internal/observability"
	"github.com/wavepulse/wavepulse-go/internal/segment"
)

const (
	// streamBufferSize decouples the network reader from segment writes so a
	// slow disk does not stall the socket.
	streamBufferSize = 256 * 1024
	readChunkSize    = 8 * 1024
)

// HealthEvent is emitted on terminal worker transitions so the scheduler can
// observe stops and failures without polling.
type HealthEvent struct {
	StationID string
	State     WorkerState
	Err       error
	Time      time.Time
}

// Config holds the per-station capture parameters.
type Config struct {
	StationID       string
	URL             string
	SegmentDuration time.Duration
	ConnectTimeout  time.Duration
	IdleTimeout     time.Duration
	Retry           RetryPolicy
}

// Deps are the worker's collaborators. Source may be nil, in which case the
// transport is selected from the URL. Metrics and Health may be nil.
type Deps struct {
	Source    Source
	BufferDir string
	Finalizer *segment.Finalizer
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *observability.CaptureMetrics
	Health    chan<- HealthEvent
}

// Worker captures one station's livestream for the lifetime of a schedule
// window. It owns the connection, the retry budget and the in-flight segment
// buffer; the scheduler owns when it starts and stops.
type Worker struct {
	cfg       Config
	source    Source
	bufferDir string
	finalizer *segment.Finalizer
	clk       clock.Clock
	logger    *slog.Logger
	metrics   *observability.CaptureMetrics
	health    chan<- HealthEvent

	tracker     stateTracker
	bytes       atomic.Int64
	lastData    atomic.Int64
	idleTripped atomic.Bool
	healthDrops atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWorker builds a worker in the Idle state. Call Start to begin capture.
func NewWorker(cfg Config, deps Deps) *Worker {
	src := deps.Source
	if src == nil {
		src = NewSource(cfg.URL, cfg.ConnectTimeout)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:       cfg,
		source:    src,
		bufferDir: deps.BufferDir,
		finalizer: deps.Finalizer,
		clk:       deps.Clock,
		logger:    logger.With("station", cfg.StationID),
		metrics:   deps.Metrics,
		health:    deps.Health,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// StationID returns the owning station.
func (w *Worker) StationID() string { return w.cfg.StationID }

// State returns the current worker state.
func (w *Worker) State() WorkerState { return w.tracker.current() }

// Transitions returns the recorded state transition history.
func (w *Worker) Transitions() []StateTransition { return w.tracker.history() }

// BytesReceived returns the total stream bytes appended to segments.
func (w *Worker) BytesReceived() int64 { return w.bytes.Load() }

// HealthDrops returns how many health events were discarded because the
// channel was full.
func (w *Worker) HealthDrops() int64 { return w.healthDrops.Load() }

// Done is closed when the worker has fully terminated.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }

// Start launches the capture loop.
func (w *Worker) Start(ctx context.Context) {
	w.metrics.WorkerStarted(w.cfg.StationID)
	go w.run(ctx)
}

// Stop requests a graceful drain. Safe to call more than once; does not wait,
// use Done for that.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	var writer *segment.Writer
	failures := 0

	for {
		if w.stopRequested(ctx) {
			w.drain(&writer)
			return
		}

		w.setState(StateConnecting, "connecting")
		body, err := w.source.Connect(ctx)
		if err != nil {
			failures++
			w.logger.Warn("stream connect failed",
				"url", w.source.URL(),
				"attempt", failures,
				"error", err)
			if w.stopRequested(ctx) {
				w.drain(&writer)
				return
			}
			if !w.cfg.Retry.ShouldRetry(failures) {
				w.fail(&writer, err)
				return
			}
			w.metrics.ConnectionRetry(w.cfg.StationID)
			w.setState(StateRetrying, "connect failed")
			if !w.wait(ctx, w.cfg.Retry.NextDelay(failures)) {
				w.drain(&writer)
				return
			}
			continue
		}

		gotData, streamErr := w.stream(ctx, body, &writer)
		if w.stopRequested(ctx) {
			w.drain(&writer)
			return
		}

		// A stream that delivered data earns a fresh retry budget; the drop
		// is the first failure of a new streak.
		if gotData {
			failures = 0
		}
		failures++
		w.logger.Warn("stream dropped",
			"url", w.source.URL(),
			"attempt", failures,
			"error", streamErr)
		if !w.cfg.Retry.ShouldRetry(failures) {
			w.fail(&writer, streamErr)
			return
		}
		w.metrics.ConnectionRetry(w.cfg.StationID)
		w.setState(StateRetrying, "stream dropped")
		if !w.wait(ctx, w.cfg.Retry.NextDelay(failures)) {
			w.drain(&writer)
			return
		}
	}
}

// stream pumps bytes from an established connection into segment buffers
// until the connection drops, the idle watchdog trips or a stop closes the
// body. Returns whether any data arrived.
func (w *Worker) stream(ctx context.Context, body io.ReadCloser, writer **segment.Writer) (bool, error) {
	defer func() { _ = body.Close() }()

	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rb := ringbuffer.New(streamBufferSize).SetBlocking(true).WithCancel(streamCtx)

	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				if _, werr := rb.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				rb.CloseWithError(err)
				return
			}
		}
	}()

	w.lastData.Store(w.clk.Now().UnixNano())
	w.idleTripped.Store(false)
	watchDone := make(chan struct{})
	defer close(watchDone)
	go w.watch(ctx, body, watchDone)

	gotData := false
	buf := make([]byte, readChunkSize)
	for {
		n, err := rb.Read(buf)
		if n > 0 {
			gotData = true
			now := w.clk.Now()
			w.lastData.Store(now.UnixNano())
			w.setState(StateStreaming, "receiving data")
			w.append(writer, buf[:n], now)
		}
		if err != nil {
			if w.idleTripped.Load() {
				return gotData, errors.Newf("no stream data for %s", w.cfg.IdleTimeout).
					Category(errors.CategoryStreamTimeout).
					Context("station", w.cfg.StationID).
					Build()
			}
			return gotData, err
		}
	}
}

// watch closes the connection body when a stop arrives or the stream goes
// silent for longer than the idle timeout. Closing the body is the only
// reliable way to unblock the network read.
func (w *Worker) watch(ctx context.Context, body io.ReadCloser, done <-chan struct{}) {
	interval := w.cfg.IdleTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	for {
		select {
		case <-done:
			return
		case <-w.stopCh:
			_ = body.Close()
			return
		case <-ctx.Done():
			_ = body.Close()
			return
		case <-w.clk.After(interval):
			if w.cfg.IdleTimeout <= 0 {
				continue
			}
			last := time.Unix(0, w.lastData.Load())
			if w.clk.Now().Sub(last) >= w.cfg.IdleTimeout {
				w.idleTripped.Store(true)
				_ = body.Close()
				return
			}
		}
	}
}

// append writes a chunk into the current segment buffer, opening a fresh one
// when needed and rotating once the segment has covered its wall-clock
// duration. Buffer write failures discard the segment and capture continues.
func (w *Worker) append(writer **segment.Writer, chunk []byte, now time.Time) {
	if *writer == nil {
		nw, err := segment.NewWriter(w.bufferDir, w.cfg.StationID)
		if err != nil {
			w.logger.Error("cannot open segment buffer, dropping chunk", "error", err)
			return
		}
		*writer = nw
	}

	(*writer).SetStart(now)
	if _, err := (*writer).Write(chunk); err != nil {
		w.logger.Warn("segment buffer write failed, discarding segment", "error", err)
		_ = (*writer).Discard()
		*writer = nil
		return
	}
	w.bytes.Add(int64(len(chunk)))
	w.metrics.BytesReceived(w.cfg.StationID, len(chunk))

	if now.Sub((*writer).Start()) >= w.cfg.SegmentDuration {
		w.rotate(writer, now)
	}
}

func (w *Worker) rotate(writer **segment.Writer, now time.Time) {
	_, err := w.finalizer.Finalize(*writer, now)
	*writer = nil
	if err != nil {
		// Already logged with detail by the finalizer; capture continues
		// with the next segment.
		return
	}
}

// drain flushes the in-flight segment after a stop request and parks the
// worker in Idle.
func (w *Worker) drain(writer **segment.Writer) {
	w.setState(StateDraining, "stop requested")
	now := w.clk.Now()
	if *writer != nil {
		if _, err := w.finalizer.Finalize(*writer, now); err != nil {
			w.logger.Warn("drain flush failed", "error", err)
		}
		*writer = nil
	}
	w.setState(StateIdle, "drained")
	w.metrics.WorkerStopped(w.cfg.StationID)
	w.logger.Info("capture worker stopped", "bytes", w.bytes.Load())
	w.emitHealth(StateIdle, nil)
}

// fail finalizes any partial segment and parks the worker in Failed. Partial
// data captured before the failure is still worth publishing.
func (w *Worker) fail(writer **segment.Writer, cause error) {
	now := w.clk.Now()
	if *writer != nil {
		if _, err := w.finalizer.Finalize(*writer, now); err != nil {
			w.logger.Warn("final flush failed", "error", err)
		}
		*writer = nil
	}
	w.setState(StateFailed, "retry budget exhausted")
	w.metrics.WorkerFailed(w.cfg.StationID)
	w.logger.Error("capture worker failed",
		"url", w.source.URL(),
		"max_attempts", w.cfg.Retry.MaxAttempts,
		"error", cause)
	w.emitHealth(StateFailed, cause)
}

func (w *Worker) setState(to WorkerState, reason string) {
	from := w.tracker.current()
	if !w.tracker.transition(to, w.clk.Now(), reason) {
		w.logger.Warn("rejected state transition",
			"from", from.String(),
			"to", to.String(),
			"reason", reason)
		return
	}
	if from != to {
		w.logger.Debug("worker state change",
			"from", from.String(),
			"to", to.String(),
			"reason", reason)
	}
}

func (w *Worker) emitHealth(state WorkerState, err error) {
	if w.health == nil {
		return
	}
	ev := HealthEvent{
		StationID: w.cfg.StationID,
		State:     state,
		Err:       err,
		Time:      w.clk.Now(),
	}
	select {
	case w.health <- ev:
	default:
		// The scheduler polls worker state anyway; never block on a full
		// health channel.
		w.healthDrops.Add(1)
		w.logger.Debug("health event dropped, channel full",
			"state", state.String(),
			"dropped", w.healthDrops.Load())
	}
}

func (w *Worker) stopRequested(ctx context.Context) bool {
	select {
	case <-w.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (w *Worker) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-w.stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-w.clk.After(d):
		return true
	}
}
