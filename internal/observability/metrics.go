// Package observability provides Prometheus metrics for the capture core
// and the HTTP exposition endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CaptureMetrics contains Prometheus metrics for capture and segment
// operations. All record methods are safe to call on a nil receiver so
// components work unchanged when telemetry is disabled.
type CaptureMetrics struct {
	registry *prometheus.Registry

	// Scheduler metrics
	activeWorkers prometheus.Gauge
	workerStarts  *prometheus.CounterVec
	workerStops   *prometheus.CounterVec
	workerFailed  *prometheus.CounterVec
	cycleCount    prometheus.Counter

	// Capture metrics
	bytesReceived     *prometheus.CounterVec
	connectionRetries *prometheus.CounterVec

	// Segment metrics
	segmentsFinalized *prometheus.CounterVec
	segmentBytes      *prometheus.CounterVec
	finalizeFailures  *prometheus.CounterVec
}

// NewCaptureMetrics creates and registers capture metrics.
func NewCaptureMetrics(registry *prometheus.Registry) (*CaptureMetrics, error) {
	m := &CaptureMetrics{registry: registry}
	m.initMetrics()
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *CaptureMetrics) initMetrics() {
	m.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavepulse_active_workers",
		Help: "Number of live capture workers",
	})

	m.workerStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_worker_starts_total",
			Help: "Total number of capture worker starts",
		},
		[]string{"station"},
	)

	m.workerStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_worker_stops_total",
			Help: "Total number of graceful capture worker stops",
		},
		[]string{"station"},
	)

	m.workerFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_worker_failed_total",
			Help: "Total number of workers that exhausted their retries",
		},
		[]string{"station"},
	)

	m.cycleCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavepulse_schedule_cycles_total",
		Help: "Total number of schedule cycles started",
	})

	m.bytesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_stream_bytes_received_total",
			Help: "Total stream bytes received per station",
		},
		[]string{"station"},
	)

	m.connectionRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_connection_retries_total",
			Help: "Total connection retry attempts per station",
		},
		[]string{"station"},
	)

	m.segmentsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_segments_finalized_total",
			Help: "Total segments published to the recordings area",
		},
		[]string{"station"},
	)

	m.segmentBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_segment_bytes_total",
			Help: "Total bytes of published segment data",
		},
		[]string{"station"},
	)

	m.finalizeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavepulse_finalize_failures_total",
			Help: "Total segment flush failures",
		},
		[]string{"station"},
	)
}

func (m *CaptureMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.activeWorkers,
		m.workerStarts,
		m.workerStops,
		m.workerFailed,
		m.cycleCount,
		m.bytesReceived,
		m.connectionRetries,
		m.segmentsFinalized,
		m.segmentBytes,
		m.finalizeFailures,
	}
}

// SetActiveWorkers records the current live worker count. This is the value
// an external admission mechanism watches to throttle starts.
func (m *CaptureMetrics) SetActiveWorkers(n int) {
	if m == nil {
		return
	}
	m.activeWorkers.Set(float64(n))
}

// WorkerStarted records a worker start.
func (m *CaptureMetrics) WorkerStarted(station string) {
	if m == nil {
		return
	}
	m.workerStarts.WithLabelValues(station).Inc()
}

// WorkerStopped records a graceful worker stop.
func (m *CaptureMetrics) WorkerStopped(station string) {
	if m == nil {
		return
	}
	m.workerStops.WithLabelValues(station).Inc()
}

// WorkerFailed records retry exhaustion for a station.
func (m *CaptureMetrics) WorkerFailed(station string) {
	if m == nil {
		return
	}
	m.workerFailed.WithLabelValues(station).Inc()
}

// CycleStarted records the start of a schedule cycle.
func (m *CaptureMetrics) CycleStarted() {
	if m == nil {
		return
	}
	m.cycleCount.Inc()
}

// BytesReceived records stream bytes received for a station.
func (m *CaptureMetrics) BytesReceived(station string, n int) {
	if m == nil {
		return
	}
	m.bytesReceived.WithLabelValues(station).Add(float64(n))
}

// ConnectionRetry records one retry attempt for a station.
func (m *CaptureMetrics) ConnectionRetry(station string) {
	if m == nil {
		return
	}
	m.connectionRetries.WithLabelValues(station).Inc()
}

// SegmentFinalized records a published segment.
func (m *CaptureMetrics) SegmentFinalized(station string, bytes int64) {
	if m == nil {
		return
	}
	m.segmentsFinalized.WithLabelValues(station).Inc()
	m.segmentBytes.WithLabelValues(station).Add(float64(bytes))
}

// FinalizeFailed records a segment flush failure.
func (m *CaptureMetrics) FinalizeFailed(station string) {
	if m == nil {
		return
	}
	m.finalizeFailures.WithLabelValues(station).Inc()
}
