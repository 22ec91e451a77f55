package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordSessionLifecycle(t *testing.T) {
	m := NewMetrics()

	m.ObserveStarted()
	m.ObserveStarted()
	m.ObserveAcquisitionFailure()
	m.ObserveCodecDegraded()
	m.SetState(2)
	m.ObserveRecording(3*time.Second, 96000)
	m.ObserveAnalysis("success", 200*time.Millisecond)
	m.ObserveAnalysis("failure", time.Second)
	m.ObserveAnalysis("failure", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AcquisitionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CodecDegraded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisOutcomes.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysisOutcomes.WithLabelValues("failure")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStarted()
		m.ObserveAcquisitionFailure()
		m.ObserveCodecDegraded()
		m.SetState(1)
		m.ObserveRecording(time.Second, 10)
		m.ObserveAnalysis("success", time.Second)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vocalize_sessions_started_total 1")
}

func TestNewMetricsUsesPrivateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
