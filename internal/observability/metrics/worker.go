package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventInFlight prometheus.Gauge
	toursCounted  prometheus.Counter
	eventLag      *prometheus.HistogramVec
	resilience    *ResilienceMetrics
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "worker",
			Name:      "recommendation_events_total",
			Help:      "Total processed recommendation events by status.",
		},
		[]string{"service", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "worker",
			Name:      "recommendation_event_duration_seconds",
			Help:      "Recommendation event processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tourai",
			Subsystem: "worker",
			Name:      "recommendation_events_in_flight",
			Help:      "Number of recommendation events being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	toursCounted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "worker",
			Name:      "recommended_tours_counted_total",
			Help:      "Total tour recommendations folded into statistics.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between the recommendation and its processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(eventTotal, eventDuration, eventInFlight, toursCounted, eventLag)

	return &WorkerMetrics{
		registry:      registry,
		eventTotal:    eventTotal,
		eventDuration: eventDuration,
		eventInFlight: eventInFlight,
		toursCounted:  toursCounted,
		eventLag:      eventLag,
		resilience:    newResilienceMetrics(registry, service),
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, tours int, duration time.Duration, err error) {
	m.eventInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	} else if tours > 0 {
		m.toursCounted.Add(float64(tours))
	}

	m.eventTotal.WithLabelValues(service, status).Inc()
	m.eventDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
