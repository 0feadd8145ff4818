package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

const (
	FallbackReasonPinned        = "agent_unavailable"
	FallbackReasonAgentError    = "agent_error"
	FallbackReasonTimeout       = "timeout"
	FallbackReasonMaxIterations = "max_iterations"
	FallbackReasonMalformedArgs = "malformed_tool_arguments"
	FallbackReasonUnknownTool   = "unknown_tool"
	FallbackReasonEmptyAnswer   = "empty_final_answer"
)

type RecommenderOption func(*Recommender)

func WithRecommendationObserver(observer ports.RecommendationObserver) RecommenderOption {
	return func(r *Recommender) {
		r.observer = observer
	}
}

// Recommender picks agent or fallback mode once at construction. A pinned
// fallback never changes; in agent mode a failed call is answered by the
// fallback engine and the next call tries the agent again.
type Recommender struct {
	store    ports.TourStore
	agent    *ToolAgent
	mode     domain.RecommendationMode
	observer ports.RecommendationObserver
}

func NewRecommender(
	store ports.TourStore,
	tools *ToolSet,
	model ports.ChatModel,
	systemPrompt string,
	limits domain.AgentLimits,
	opts ...RecommenderOption,
) *Recommender {
	r := &Recommender{
		store: store,
		mode:  domain.RecommendationModeFallback,
	}
	for _, opt := range opts {
		opt(r)
	}

	if model == nil {
		slog.Warn("recommender_fallback_pinned", "reason", "chat model not configured")
		return r
	}
	agent, err := NewToolAgent(model, tools, systemPrompt, limits)
	if err != nil {
		slog.Warn("recommender_fallback_pinned", "reason", err.Error())
		return r
	}
	r.agent = agent
	r.mode = domain.RecommendationModeAgent
	return r
}

func (r *Recommender) Mode() domain.RecommendationMode {
	return r.mode
}

func (r *Recommender) Recommend(ctx context.Context, query string, history []string) domain.RecommendationResult {
	start := time.Now()
	history = recentHistory(history)
	var result domain.RecommendationResult

	switch r.mode {
	case domain.RecommendationModeAgent:
		outcome, err := r.agent.Run(ctx, HistoryToMessages(history), query)
		if err != nil {
			reason := fallbackReasonFor(err)
			slog.Warn("agent_invocation_failed", "reason", reason, "error", err)
			result = r.fallback(ctx, query, history)
			result.FallbackReason = reason
		} else {
			result = domain.RecommendationResult{
				Response:         outcome.Answer,
				RecommendedTours: r.extractTours(ctx, outcome.Invocations),
				Mode:             domain.RecommendationModeAgent,
			}
		}
		if outcome != nil {
			result.ToolCalls = outcome.Invocations
			result.Usage = domain.AgentUsage{
				Model:            outcome.Model,
				Iterations:       outcome.Iterations,
				PromptTokens:     outcome.PromptTokens,
				CompletionTokens: outcome.CompletionTokens,
			}
		}
	default:
		result = r.fallback(ctx, query, history)
		result.FallbackReason = FallbackReasonPinned
	}

	if r.observer != nil {
		r.observer.ObserveRecommendation(result, time.Since(start))
	}
	return result
}

// recentHistory keeps the last MaxHistoryTurns lines.
func recentHistory(history []string) []string {
	if len(history) <= domain.MaxHistoryTurns {
		return history
	}
	return history[len(history)-domain.MaxHistoryTurns:]
}

func (r *Recommender) fallback(ctx context.Context, query string, history []string) domain.RecommendationResult {
	tours, err := r.store.ListActive(ctx)
	if err != nil {
		slog.Warn("fallback_catalog_unavailable", "error", err)
		tours = nil
	}
	return Fallback(query, history, tours)
}

// extractTours collects tour ids across invocations in call order, keeps the
// first occurrence of each and refetches at most five of them as active tours.
func (r *Recommender) extractTours(ctx context.Context, invocations []domain.ToolInvocation) []domain.FullTourView {
	ids := make([]int64, 0, domain.MaxRecommendedTours)
	seen := make(map[int64]struct{})
collect:
	for _, invocation := range invocations {
		for _, tour := range invocation.Tours {
			if _, ok := seen[tour.ID]; ok {
				continue
			}
			seen[tour.ID] = struct{}{}
			ids = append(ids, tour.ID)
			if len(ids) == domain.MaxRecommendedTours {
				break collect
			}
		}
	}
	if len(ids) == 0 {
		return []domain.FullTourView{}
	}

	tours, err := r.store.GetActiveByIDs(ctx, ids)
	if err != nil {
		slog.Warn("recommended_tours_lookup_failed", "ids", ids, "error", err)
		return []domain.FullTourView{}
	}
	byID := make(map[int64]domain.Tour, len(tours))
	for _, tour := range tours {
		if tour.IsActive {
			byID[tour.ID] = tour
		}
	}
	ordered := make([]domain.Tour, 0, len(ids))
	for _, id := range ids {
		if tour, ok := byID[id]; ok {
			ordered = append(ordered, tour)
		}
	}
	return ToFull(ordered)
}

func fallbackReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrAgentIterationLimit):
		return FallbackReasonMaxIterations
	case errors.Is(err, ErrMalformedToolArguments):
		return FallbackReasonMalformedArgs
	case errors.Is(err, ErrEmptyAgentAnswer):
		return FallbackReasonEmptyAnswer
	case domain.IsKind(err, domain.ErrInvalidInput):
		return FallbackReasonUnknownTool
	case isAgentTimeoutError(err):
		return FallbackReasonTimeout
	default:
		return FallbackReasonAgentError
	}
}
