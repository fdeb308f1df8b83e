// Package metrics provides Prometheus metrics for the match verification
// and rating engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Verification flow
	matchesSubmitted  prometheus.Counter
	verifications     prometheus.Counter
	lineupJoins       prometheus.Counter
	matchesFinalized  prometheus.Counter
	pendingMatches    prometheus.Gauge
	finalizeRetries   prometheus.Counter
	finalizeFailures  prometheus.Counter
	integrityWarnings prometheus.Counter
	playersUpdated    prometheus.Counter
	finalizeDuration  prometheus.Histogram

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithHistogramBuckets overrides the duration histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithPrometheusRegistry sets a custom registry.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Global manager on a private registry so default Go collectors stay out of
// the scrape output.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "diski",
		subsystem:        "matches",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.matchesSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submitted_total", Help: "Matches submitted for verification.",
	})
	m.verifications = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "verifications_total", Help: "Peer confirmations recorded.",
	})
	m.lineupJoins = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "lineup_joins_total", Help: "Late lineup joins recorded.",
	})
	m.matchesFinalized = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "finalized_total", Help: "Matches that reached consensus and finalized.",
	})
	m.pendingMatches = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pending", Help: "Matches currently awaiting consensus.",
	})
	m.finalizeRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "finalize_retries_total", Help: "Whole-batch finalization retries.",
	})
	m.finalizeFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "finalize_failures_total", Help: "Finalization batches that exhausted retries.",
	})
	m.integrityWarnings = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "integrity_warnings_total", Help: "Performance records skipped during finalization.",
	})
	m.playersUpdated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "players_updated_total", Help: "Player documents written by finalization batches.",
	})
	m.finalizeDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "finalize_duration_ms", Help: "Finalization batch duration in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	return m
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return globalManager.registry
}

// Package-level helpers delegating to the global manager.

func RecordMatchSubmitted() {
	globalManager.matchesSubmitted.Inc()
	globalManager.pendingMatches.Inc()
}

func RecordVerification() { globalManager.verifications.Inc() }

func RecordLineupJoin() { globalManager.lineupJoins.Inc() }

func RecordMatchFinalized() {
	globalManager.matchesFinalized.Inc()
	globalManager.pendingMatches.Dec()
}

func RecordFinalizeRetry() { globalManager.finalizeRetries.Inc() }

func RecordFinalizeFailure() { globalManager.finalizeFailures.Inc() }

func RecordIntegrityWarning() { globalManager.integrityWarnings.Inc() }

func RecordPlayersUpdated(n int) { globalManager.playersUpdated.Add(float64(n)) }

func ObserveFinalizeDuration(ms float64) { globalManager.finalizeDuration.Observe(ms) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
