package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for bureau vendor calls.
type Metrics struct {
	// Calls by bureau and outcome: success or an error category
	Calls *prometheus.CounterVec

	// Call latency by bureau
	Latency *prometheus.HistogramVec

	// Circuit breaker state by bureau: 1 open, 0 closed
	CircuitOpen *prometheus.GaugeVec
}

// New creates a new Metrics instance with all vendor metrics registered.
func New() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditlens_vendor_calls_total",
			Help: "Bureau vendor calls by bureau and outcome",
		}, []string{"bureau", "outcome"}),

		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditlens_vendor_call_duration_seconds",
			Help:    "Duration of bureau vendor calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"bureau"}),

		CircuitOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creditlens_vendor_circuit_open",
			Help: "Whether the vendor circuit breaker is open",
		}, []string{"bureau"}),
	}
}

// RecordCall counts a completed vendor call and its latency.
func (m *Metrics) RecordCall(bureau, outcome string, d time.Duration) {
	if m != nil {
		m.Calls.WithLabelValues(bureau, outcome).Inc()
		m.Latency.WithLabelValues(bureau).Observe(d.Seconds())
	}
}

// SetCircuitOpen reports the breaker state.
func (m *Metrics) SetCircuitOpen(bureau string, open bool) {
	if m != nil {
		v := 0.0
		if open {
			v = 1
		}
		m.CircuitOpen.WithLabelValues(bureau).Set(v)
	}
}
