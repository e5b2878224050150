package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureMetricsRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewCaptureMetrics(registry)
	require.NoError(t, err)

	m.SetActiveWorkers(7)
	m.SegmentFinalized("NY_WABC", 1024)
	m.SegmentFinalized("NY_WABC", 2048)
	m.FinalizeFailed("NY_WABC")
	m.ConnectionRetry("NY_WABC")
	m.BytesReceived("NY_WABC", 512)
	m.WorkerStarted("NY_WABC")
	m.WorkerStopped("NY_WABC")
	m.WorkerFailed("NY_WABC")
	m.CycleStarted()

	assert.InDelta(t, 7, testutil.ToFloat64(m.activeWorkers), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.segmentsFinalized.WithLabelValues("NY_WABC")), 0)
	assert.InDelta(t, 3072, testutil.ToFloat64(m.segmentBytes.WithLabelValues("NY_WABC")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.finalizeFailures.WithLabelValues("NY_WABC")), 0)
	assert.InDelta(t, 512, testutil.ToFloat64(m.bytesReceived.WithLabelValues("NY_WABC")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cycleCount), 0)
}

func TestCaptureMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var m *CaptureMetrics
	assert.NotPanics(t, func() {
		m.SetActiveWorkers(1)
		m.SegmentFinalized("NY_WABC", 1)
		m.FinalizeFailed("NY_WABC")
		m.ConnectionRetry("NY_WABC")
		m.BytesReceived("NY_WABC", 1)
		m.WorkerStarted("NY_WABC")
		m.WorkerStopped("NY_WABC")
		m.WorkerFailed("NY_WABC")
		m.CycleStarted()
	})
}

func TestCaptureMetricsDoubleRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewCaptureMetrics(registry)
	require.NoError(t, err)
	_, err = NewCaptureMetrics(registry)
	assert.Error(t, err)
}
