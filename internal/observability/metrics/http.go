package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	recommendationsTotal   *prometheus.CounterVec
	recommendationDuration *prometheus.HistogramVec
	recommendedTours       *prometheus.HistogramVec
	fallbacksTotal         *prometheus.CounterVec
	llmTokensTotal         *prometheus.CounterVec
	agentIterations        prometheus.Histogram
	agentToolCallsTotal    *prometheus.CounterVec
	rateLimitedTotal       prometheus.Counter

	resilience *ResilienceMetrics
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tourai",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recommendationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "recommendation",
			Name:      "requests_total",
			Help:      "Total answered recommendation requests by mode.",
		},
		[]string{"service", "mode"},
	)
	recommendationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "recommendation",
			Name:      "duration_seconds",
			Help:      "Recommendation duration in seconds by mode.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"service", "mode"},
	)
	recommendedTours := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "recommendation",
			Name:      "tours",
			Help:      "Distribution of tours attached to each answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service", "mode"},
	)
	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "recommendation",
			Name:      "fallbacks_total",
			Help:      "Total answers produced by the rule-based fallback, by reason.",
		},
		[]string{"service", "reason"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model, by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	agentIterations := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tourai",
			Subsystem: "agent",
			Name:      "iterations",
			Help:      "Distribution of agent loop iterations per run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	agentToolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Total search tool calls performed by the agent.",
		},
		[]string{"service", "tool"},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tourai",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by traffic control.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		recommendationsTotal,
		recommendationDuration,
		recommendedTours,
		fallbacksTotal,
		llmTokensTotal,
		agentIterations,
		agentToolCallsTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		recommendationsTotal:   recommendationsTotal,
		recommendationDuration: recommendationDuration,
		recommendedTours:       recommendedTours,
		fallbacksTotal:         fallbacksTotal,
		llmTokensTotal:         llmTokensTotal,
		agentIterations:        agentIterations,
		agentToolCallsTotal:    agentToolCallsTotal,
		rateLimitedTotal:       rateLimitedTotal,
		resilience:             newResilienceMetrics(registry, service),
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/conversations/"):
		return "/v1/conversations/{conversation_id}"
	case strings.HasPrefix(path, "/v1/chat/messages/"):
		return "/v1/chat/messages/{message_id}/recommended-tours"
	case strings.HasPrefix(path, "/mcp"):
		return "/mcp"
	default:
		return path
	}
}

// ObserveRecommendation records one answered query, whichever mode produced it.
func (m *HTTPServerMetrics) ObserveRecommendation(result domain.RecommendationResult, duration time.Duration) {
	mode := string(result.Mode)
	if mode == "" {
		mode = "unknown"
	}
	m.recommendationsTotal.WithLabelValues(m.service, mode).Inc()
	m.recommendationDuration.WithLabelValues(m.service, mode).Observe(duration.Seconds())
	m.recommendedTours.WithLabelValues(m.service, mode).Observe(float64(len(result.RecommendedTours)))

	if result.Mode == domain.RecommendationModeFallback {
		reason := result.FallbackReason
		if reason == "" {
			reason = "unknown"
		}
		m.fallbacksTotal.WithLabelValues(m.service, reason).Inc()
	}
	for _, call := range result.ToolCalls {
		m.RecordAgentToolCall(call.Tool)
	}
	if result.Usage.Iterations > 0 {
		m.agentIterations.Observe(float64(result.Usage.Iterations))
	}
	m.RecordTokenUsage(result.Usage.Model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
}

func (m *HTTPServerMetrics) RecordTokenUsage(model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(completionTokens))
	}
}

func (m *HTTPServerMetrics) RecordAgentToolCall(tool string) {
	if tool == "" {
		tool = "unknown"
	}
	m.agentToolCallsTotal.WithLabelValues(m.service, tool).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
