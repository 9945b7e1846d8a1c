// Package metrics exposes Prometheus metrics for the assessment pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the pipeline metrics.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	scoringRuns         prometheus.Counter
	scoringLatency      prometheus.Histogram
	recommendationTiers *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	transitionsDenied   *prometheus.CounterVec
	exports             *prometheus.CounterVec
	exportBytes         *prometheus.HistogramVec
	exportLatency       *prometheus.HistogramVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithRegistry registers the metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = reg }
}

var globalManager = NewManager()

// NewManager creates a manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "cataid"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoringRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scoring",
		Name:      "runs_total",
		Help:      "Total number of score computations",
	})
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "scoring",
		Name:      "latency_ms",
		Help:      "Score and recommendation computation latency in milliseconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 50},
	})
	m.recommendationTiers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "recommendations",
		Name:      "sections_total",
		Help:      "Sections recommended per support tier",
	}, []string{"tier"})
	m.transitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "workflow",
		Name:      "transitions_total",
		Help:      "Applied assessment status transitions",
	}, []string{"action", "status"})
	m.transitionsDenied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "workflow",
		Name:      "transitions_denied_total",
		Help:      "Refused assessment status transitions",
	}, []string{"action", "reason"})
	m.exports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "export",
		Name:      "documents_total",
		Help:      "Rendered report documents",
	}, []string{"format", "result"})
	m.exportBytes = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "export",
		Name:      "size_bytes",
		Help:      "Size of rendered report documents",
		Buckets:   prometheus.ExponentialBuckets(4096, 2, 10),
	}, []string{"format"})
	m.exportLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "export",
		Name:      "latency_ms",
		Help:      "Report rendering latency in milliseconds",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"format"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
}

// RecordScoring counts one scoring pass and its latency.
func RecordScoring(latencyMs float64) {
	globalManager.scoringRuns.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordRecommendationTier counts a section recommended at tier.
func RecordRecommendationTier(tier string) {
	globalManager.recommendationTiers.WithLabelValues(tier).Inc()
}

// RecordTransition counts an applied status transition.
func RecordTransition(action, status string) {
	globalManager.transitions.WithLabelValues(action, status).Inc()
}

// RecordTransitionDenied counts a refused transition.
func RecordTransitionDenied(action, reason string) {
	globalManager.transitionsDenied.WithLabelValues(action, reason).Inc()
}

// RecordExport records a rendering attempt.
func RecordExport(format string, size int, latencyMs float64, err error) {
	if err != nil {
		globalManager.exports.WithLabelValues(format, "error").Inc()
		return
	}
	globalManager.exports.WithLabelValues(format, "ok").Inc()
	globalManager.exportBytes.WithLabelValues(format).Observe(float64(size))
	globalManager.exportLatency.WithLabelValues(format).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, status string, seconds float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
}

// GetRegistry returns the registry the global metrics live in.
func GetRegistry() *prometheus.Registry {
	return globalManager.registry
}

// Handler serves the global registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(globalManager.registry, promhttp.HandlerOpts{})
}
