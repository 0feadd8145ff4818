package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var breakerStateValues = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

// ResilienceMetrics exports retry and circuit breaker activity of outbound calls.
type ResilienceMetrics struct {
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceMetrics(registry *prometheus.Registry, service string) *ResilienceMetrics {
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "tourai",
			Subsystem:   "resilience",
			Name:        "retries_total",
			Help:        "Total retried outbound calls by operation.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "tourai",
			Subsystem:   "resilience",
			Name:        "breaker_state",
			Help:        "Circuit breaker state by operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"operation"},
	)
	registry.MustRegister(retriesTotal, breakerState)
	return &ResilienceMetrics{retriesTotal: retriesTotal, breakerState: breakerState}
}

func (m *ResilienceMetrics) ObserveRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *ResilienceMetrics) ObserveBreakerState(operation string, state string) {
	value, ok := breakerStateValues[state]
	if !ok {
		return
	}
	m.breakerState.WithLabelValues(operation).Set(value)
}

// Resilience returns the retry/breaker observer bound to the API registry.
func (m *HTTPServerMetrics) Resilience() *ResilienceMetrics {
	return m.resilience
}

// Resilience returns the retry/breaker observer bound to the worker registry.
func (m *WorkerMetrics) Resilience() *ResilienceMetrics {
	return m.resilience
}
