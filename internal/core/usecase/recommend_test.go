package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type recordingObserver struct {
	results []domain.RecommendationResult
}

func (o *recordingObserver) ObserveRecommendation(result domain.RecommendationResult, _ time.Duration) {
	o.results = append(o.results, result)
}

func TestRecommenderPinsFallbackWithoutModel(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	rec := NewRecommender(store, NewSearchToolSet(store), nil, DefaultSystemPrompt, domain.AgentLimits{})
	if rec.Mode() != domain.RecommendationModeFallback {
		t.Fatalf("expected pinned fallback, got %q", rec.Mode())
	}

	result := rec.Recommend(context.Background(), "I want an adventure trip", nil)
	if result.Mode != domain.RecommendationModeFallback || result.FallbackReason != FallbackReasonPinned {
		t.Fatalf("unexpected mode/reason %q/%q", result.Mode, result.FallbackReason)
	}
	if len(result.RecommendedTours) != 2 {
		t.Fatalf("expected 2 adventure tours, got %d", len(result.RecommendedTours))
	}
}

func TestRecommenderPinsFallbackWhenAgentCannotBeBuilt(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	model := &scriptedModel{}
	rec := NewRecommender(store, NewSearchToolSet(store), model, "", domain.AgentLimits{})
	if rec.Mode() != domain.RecommendationModeFallback {
		t.Fatalf("expected pinned fallback, got %q", rec.Mode())
	}
	rec.Recommend(context.Background(), "hello", nil)
	if len(model.requests) != 0 {
		t.Fatalf("pinned fallback must never call the model")
	}
}

func TestRecommenderExtractsDeduplicatedToursInFirstSeenOrder(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	model := &scriptedModel{replies: []domain.ModelReply{
		toolCallReply(
			domain.ModelToolCall{ID: "a", Name: ToolSearchByDestination, Arguments: `{"destination":"Japan"}`},
			domain.ModelToolCall{ID: "b", Name: ToolSearchByPriceRange, Arguments: `{"max_price":1000}`},
		),
		finalReply("Here are some ideas!"),
	}}
	observer := &recordingObserver{}
	rec := NewRecommender(store, NewSearchToolSet(store), model, DefaultSystemPrompt, domain.AgentLimits{}, WithRecommendationObserver(observer))
	if rec.Mode() != domain.RecommendationModeAgent {
		t.Fatalf("expected agent mode")
	}

	result := rec.Recommend(context.Background(), "Japan on a budget", nil)
	if result.Response != "Here are some ideas!" || result.Mode != domain.RecommendationModeAgent {
		t.Fatalf("unexpected result %+v", result)
	}
	// Japan: 3, 8. Price <= 1000 ordered by price: 6, 8.
	ids := tourIDs(result.RecommendedTours)
	want := []int64{3, 8, 6}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
	if len(result.ToolCalls) != 2 {
		t.Fatalf("expected tool calls recorded, got %d", len(result.ToolCalls))
	}
	if len(observer.results) != 1 {
		t.Fatalf("expected observer notified once")
	}
}

func TestRecommenderCapsExtractedToursAtFiveAndDropsInactive(t *testing.T) {
	tours := sampleCatalog()
	tours[0].IsActive = false
	store := &fakeTourStore{tours: tours}
	model := &scriptedModel{replies: []domain.ModelReply{
		toolCallReply(domain.ModelToolCall{ID: "a", Name: ToolSearchByDestination, Arguments: `{"destination":"a"}`}),
		finalReply("ok"),
	}}
	rec := NewRecommender(store, NewSearchToolSet(store), model, DefaultSystemPrompt, domain.AgentLimits{})

	invocations := []domain.ToolInvocation{
		{Tours: []domain.MinimalTourView{{ID: 1}, {ID: 2}, {ID: 3}}},
		{Tours: []domain.MinimalTourView{{ID: 2}, {ID: 4}, {ID: 5}, {ID: 6}, {ID: 7}}},
	}
	views := rec.extractTours(context.Background(), invocations)
	if got := store.lastIDLookup; len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Fatalf("expected lookup of first five unique ids, got %v", got)
	}
	ids := tourIDs(views)
	if len(ids) != 4 || ids[0] != 2 {
		t.Fatalf("expected inactive tour dropped, got %v", ids)
	}
	for _, v := range views {
		if v.ID == 1 {
			t.Fatalf("inactive tour returned")
		}
	}

	result := rec.Recommend(context.Background(), "anything", nil)
	if len(result.RecommendedTours) > domain.MaxRecommendedTours {
		t.Fatalf("more than five tours returned")
	}
}

func TestRecommenderFallsBackPerCallAndRetriesAgent(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	model := &scriptedModel{
		errs:    []error{errors.New("model unreachable"), nil},
		replies: []domain.ModelReply{finalReply("Hello traveller!")},
	}
	rec := NewRecommender(store, NewSearchToolSet(store), model, DefaultSystemPrompt, domain.AgentLimits{})

	first := rec.Recommend(context.Background(), "I want an adventure trip", nil)
	if first.Mode != domain.RecommendationModeFallback || first.FallbackReason != FallbackReasonAgentError {
		t.Fatalf("expected per-call fallback, got %q/%q", first.Mode, first.FallbackReason)
	}
	if len(first.RecommendedTours) != 2 {
		t.Fatalf("expected fallback adventure tours, got %d", len(first.RecommendedTours))
	}

	second := rec.Recommend(context.Background(), "hello", nil)
	if second.Mode != domain.RecommendationModeAgent || second.Response != "Hello traveller!" {
		t.Fatalf("expected agent to be retried, got %+v", second)
	}
	if rec.Mode() != domain.RecommendationModeAgent {
		t.Fatalf("per-call failure must not pin fallback")
	}
}

func TestRecommenderFallbackReasons(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrAgentIterationLimit, FallbackReasonMaxIterations},
		{ErrEmptyAgentAnswer, FallbackReasonEmptyAnswer},
		{context.DeadlineExceeded, FallbackReasonTimeout},
		{domain.WrapError(domain.ErrInvalidInput, "invoke tool", errors.New("unknown tool")), FallbackReasonUnknownTool},
		{errors.New("boom"), FallbackReasonAgentError},
	}
	for _, tc := range cases {
		if got := fallbackReasonFor(tc.err); got != tc.want {
			t.Fatalf("fallbackReasonFor(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRecommenderFallbackSurvivesCatalogFailure(t *testing.T) {
	store := &fakeTourStore{err: errors.New("db down")}
	rec := NewRecommender(store, NewSearchToolSet(store), nil, DefaultSystemPrompt, domain.AgentLimits{})

	result := rec.Recommend(context.Background(), "trip to japan", nil)
	if result.Response != replyClarification || len(result.RecommendedTours) != 0 {
		t.Fatalf("expected clarification, got %q", result.Response)
	}
}

type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, _ domain.ModelRequest) (domain.ModelReply, error) {
	<-ctx.Done()
	return domain.ModelReply{}, ctx.Err()
}

func TestRecommenderCallerDeadlineFallsBack(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	rec := NewRecommender(store, NewSearchToolSet(store), blockingModel{}, DefaultSystemPrompt, domain.AgentLimits{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	result := rec.Recommend(ctx, "I want an adventure trip", nil)
	if result.Mode != domain.RecommendationModeFallback || result.FallbackReason != FallbackReasonTimeout {
		t.Fatalf("expected timeout fallback, got %q/%q", result.Mode, result.FallbackReason)
	}
	if len(result.RecommendedTours) != 2 {
		t.Fatalf("expected adventure tours from fallback, got %d", len(result.RecommendedTours))
	}
}

type slowModel struct {
	delay time.Duration
}

func (m slowModel) Complete(ctx context.Context, _ domain.ModelRequest) (domain.ModelReply, error) {
	select {
	case <-time.After(m.delay):
		return finalReply("Here are a few ideas."), nil
	case <-ctx.Done():
		return domain.ModelReply{}, ctx.Err()
	}
}

func TestRecommenderWaitsForSlowModel(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	rec := NewRecommender(store, NewSearchToolSet(store), slowModel{delay: 50 * time.Millisecond}, DefaultSystemPrompt, domain.AgentLimits{})

	result := rec.Recommend(context.Background(), "hello there", nil)
	if result.Mode != domain.RecommendationModeAgent || result.FallbackReason != "" {
		t.Fatalf("slow model must not be preempted, got %q/%q", result.Mode, result.FallbackReason)
	}
	if result.Response != "Here are a few ideas." {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestRecommenderTrimsHistoryToRecentTurns(t *testing.T) {
	store := &fakeTourStore{tours: sampleCatalog()}
	model := &scriptedModel{}
	rec := NewRecommender(store, NewSearchToolSet(store), model, DefaultSystemPrompt, domain.AgentLimits{})

	history := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		history = append(history, fmt.Sprintf("User: turn %d", i))
	}
	rec.Recommend(context.Background(), "anything in Japan?", history)

	if len(model.requests) != 1 {
		t.Fatalf("expected one completion, got %d", len(model.requests))
	}
	msgs := model.requests[0].Messages
	if len(msgs) != domain.MaxHistoryTurns+2 {
		t.Fatalf("expected %d messages, got %d", domain.MaxHistoryTurns+2, len(msgs))
	}
	if msgs[1].Content != "turn 5" || msgs[len(msgs)-2].Content != "turn 14" {
		t.Fatalf("expected the last ten turns, got %q..%q", msgs[1].Content, msgs[len(msgs)-2].Content)
	}
}
