package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments recording sessions. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted     prometheus.Counter
	AcquisitionFailures prometheus.Counter
	CodecDegraded       prometheus.Counter
	SessionState        prometheus.Gauge
	RecordingDuration   prometheus.Histogram
	RecordingSize       prometheus.Histogram

	AnalysisOutcomes *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
}

// NewMetrics creates all metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_sessions_started_total",
			Help: "Total number of recordings that acquired the microphone",
		}),
		AcquisitionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_acquisition_failures_total",
			Help: "Total number of failed microphone acquisitions",
		}),
		CodecDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_codec_degraded_total",
			Help: "Total number of recordings captured with the raw fallback format",
		}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vocalize_session_state",
			Help: "Current session state (0 idle, 1 listening, 2 processing)",
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_recording_duration_seconds",
			Help:    "Duration of completed recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),
		RecordingSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_recording_size_bytes",
			Help:    "Size of assembled recordings",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10), // 16KB to ~8MB
		}),

		AnalysisOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vocalize_analysis_requests_total",
			Help: "Analysis requests by outcome",
		}, []string{"outcome"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_analysis_duration_seconds",
			Help:    "Time from submission to analysis outcome",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) ObserveAcquisitionFailure() {
	if m == nil {
		return
	}
	m.AcquisitionFailures.Inc()
}

func (m *Metrics) ObserveCodecDegraded() {
	if m == nil {
		return
	}
	m.CodecDegraded.Inc()
}

func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(state))
}

func (m *Metrics) ObserveRecording(elapsed time.Duration, size int) {
	if m == nil {
		return
	}
	m.RecordingDuration.Observe(elapsed.Seconds())
	m.RecordingSize.Observe(float64(size))
}

// ObserveAnalysis records one analysis outcome: "success", "failure" or
// "canceled".
func (m *Metrics) ObserveAnalysis(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisOutcomes.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(took.Seconds())
}
