package ports

import (
	"context"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

// TourRecommender answers a free-text travel query. It never fails; every
// internal error resolves to a well-formed result.
type TourRecommender interface {
	Recommend(ctx context.Context, query string, history []string) domain.RecommendationResult
}

// ChatService is the inbound contract for the conversational endpoint and
// its conversation read model.
type ChatService interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*domain.ConversationDetail, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
	MessageRecommendedTours(ctx context.Context, userID, messageID string) ([]domain.FullTourView, error)
}

// TourCatalog is the read API over active tours.
type TourCatalog interface {
	Search(ctx context.Context, filter domain.TourFilter) ([]domain.FullTourView, error)
	Destinations(ctx context.Context) ([]string, error)
}

// RecommendationRecorder consumes recommendation events.
type RecommendationRecorder interface {
	Record(ctx context.Context, event domain.RecommendationEvent) error
}

// RecommendationStatsReader exposes the most recommended tours.
type RecommendationStatsReader interface {
	Top(ctx context.Context, limit int) ([]domain.TourRecommendationStat, error)
}
