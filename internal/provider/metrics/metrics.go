package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the provider directory module.
type Metrics struct {
	// Full synchronization latency
	SyncLatency prometheus.Histogram

	// Sync outcomes: created and updated provider counts per run
	SyncProviders *prometheus.CounterVec

	// Registration refresh latency
	RefreshLatency prometheus.Histogram

	// Per-provider registration lookups by result
	RegistrationFetches *prometheus.CounterVec

	// Registration-state transitions by operation and result
	Transitions *prometheus.CounterVec

	// Registry API call latencies by operation
	RegistryLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all provider directory metrics registered.
func New() *Metrics {
	return &Metrics{
		SyncLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "provdir_sync_duration_seconds",
			Help:    "Duration of full directory synchronization runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		SyncProviders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provdir_sync_providers_total",
			Help: "Providers written during synchronization by kind",
		}, []string{"kind"}), // kind: "created", "updated"

		RefreshLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "provdir_refresh_duration_seconds",
			Help:    "Duration of registration refresh runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		RegistrationFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provdir_registration_fetches_total",
			Help: "Per-provider registration lookups by result",
		}, []string{"result"}), // result: "ok", "error", "skipped"

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provdir_registration_transitions_total",
			Help: "Registration-state transitions by operation and result",
		}, []string{"operation", "result"}),

		RegistryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provdir_registry_call_duration_seconds",
			Help:    "Duration of external registry API calls by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// ObserveSync records one synchronization run.
func (m *Metrics) ObserveSync(d time.Duration, created, updated int) {
	if m != nil {
		m.SyncLatency.Observe(d.Seconds())
		m.SyncProviders.WithLabelValues("created").Add(float64(created))
		m.SyncProviders.WithLabelValues("updated").Add(float64(updated))
	}
}

// ObserveRefresh records one registration refresh run.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m != nil {
		m.RefreshLatency.Observe(d.Seconds())
	}
}

// IncrementFetch records a per-provider registration lookup result.
func (m *Metrics) IncrementFetch(result string) {
	if m != nil {
		m.RegistrationFetches.WithLabelValues(result).Inc()
	}
}

// IncrementTransition records a registration-state transition attempt.
func (m *Metrics) IncrementTransition(operation, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(operation, result).Inc()
	}
}

// ObserveRegistryCall records an external registry call duration.
func (m *Metrics) ObserveRegistryCall(operation string, d time.Duration) {
	if m != nil {
		m.RegistryLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
