package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the bureau data cache.
type Metrics struct {
	// Lookups by bureau and result: hit, miss, locked
	Lookups *prometheus.CounterVec

	// Store fetch outcomes by bureau and outcome: success, failure, superseded
	FetchOutcome *prometheus.CounterVec

	// Store fetch latency by operation: fetch_one, preload
	FetchLatency *prometheus.HistogramVec

	// Live per-report sessions
	Sessions prometheus.Gauge
}

// New creates a new Metrics instance with all bureau cache metrics registered.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditlens_bureau_cache_lookups_total",
			Help: "Bureau cache lookups by bureau and result",
		}, []string{"bureau", "result"}),

		FetchOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditlens_bureau_cache_fetches_total",
			Help: "Bureau data fetches from the record store by bureau and outcome",
		}, []string{"bureau", "outcome"}),

		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditlens_bureau_cache_fetch_duration_seconds",
			Help:    "Duration of record store fetches issued by the bureau cache",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		Sessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "creditlens_bureau_cache_sessions",
			Help: "Number of live per-report bureau cache sessions",
		}),
	}
}

// RecordLookup counts a FetchOne call by its result.
func (m *Metrics) RecordLookup(bureau, result string) {
	if m != nil {
		m.Lookups.WithLabelValues(bureau, result).Inc()
	}
}

// RecordFetch counts a completed store fetch.
func (m *Metrics) RecordFetch(bureau, outcome string) {
	if m != nil {
		m.FetchOutcome.WithLabelValues(bureau, outcome).Inc()
	}
}

// ObserveFetchLatency records the duration of a store fetch.
func (m *Metrics) ObserveFetchLatency(operation string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// SetSessions reports the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.Sessions.Set(float64(n))
	}
}
