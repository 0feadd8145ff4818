package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
	"github.com/kirillkom/tourai-backend/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg config.Config

	chat    ports.ChatService
	catalog ports.TourCatalog
	stats   ports.RecommendationStatsReader

	metrics    *metrics.HTTPServerMetrics
	mcpHandler http.Handler
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithMCPHandler mounts an MCP transport under /mcp.
func WithMCPHandler(h http.Handler) RouterOption {
	return func(rt *Router) {
		rt.mcpHandler = h
	}
}

func NewRouter(
	cfg config.Config,
	chat ports.ChatService,
	catalog ports.TourCatalog,
	stats ports.RecommendationStatsReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:     cfg,
		chat:    chat,
		catalog: catalog,
		stats:   stats,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/chat", rt.postChat)
	mux.HandleFunc("GET /v1/conversations", rt.listConversations)
	mux.HandleFunc("GET /v1/conversations/{conversation_id}", rt.getConversation)
	mux.HandleFunc("DELETE /v1/conversations/{conversation_id}", rt.deleteConversation)
	mux.HandleFunc("GET /v1/chat/messages/{message_id}/recommended-tours", rt.messageRecommendedTours)

	mux.HandleFunc("GET /v1/tours", rt.searchTours)
	mux.HandleFunc("GET /v1/tours/destinations", rt.listDestinations)
	mux.HandleFunc("GET /v1/stats/recommendations", rt.topRecommendations)

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.mcpHandler != nil {
		mux.Handle("/mcp", rt.mcpHandler)
		mux.Handle("/mcp/", rt.mcpHandler)
	}

	var handler http.Handler = mux
	if rt.cfg.APIRequestValidationEnabled {
		validator, err := newRequestValidator()
		if err != nil {
			slog.Error("openapi_validator_disabled", "error", err)
		} else {
			handler = validator.middleware(handler)
		}
	}
	if rt.cfg.APIBackpressureMaxInFlight > 0 {
		wait := time.Duration(rt.cfg.APIBackpressureWaitMillis) * time.Millisecond
		handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, wait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rate.Limit(rt.cfg.APIRateLimitRPS), rt.cfg.APIRateLimitBurst, rt.onRateLimited)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited()
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
