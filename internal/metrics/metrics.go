// Package metrics provides Prometheus metrics for conversion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medmate"

// Metrics holds all Prometheus metrics for the service. Each instance owns
// its registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	RunsActive  prometheus.Gauge

	// Remote transcription metrics
	RemoteCalls *prometheus.CounterVec
	PollsTotal  prometheus.Counter

	// Local recognition metrics
	FallbackPages prometheus.Counter

	// Rendering metrics
	RenderDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Conversion runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of conversion runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of conversion runs in progress",
		}),

		RemoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_transcriptions_total",
			Help:      "Remote transcription calls by outcome",
		}, []string{"outcome"}),
		PollsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_polls_total",
			Help:      "Readiness polls issued against the remote engine",
		}),

		FallbackPages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_pages_total",
			Help:      "Page images recognised by the local fallback",
		}),

		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering artifacts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRender records the time spent producing an artifact of the given format.
func (m *Metrics) ObserveRender(format string, start time.Time) {
	m.RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}
