package ports

import (
	"context"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

// TourStore reads active tours by predicate.
type TourStore interface {
	Find(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	ListActive(ctx context.Context) ([]domain.Tour, error)
	GetActiveByIDs(ctx context.Context, ids []int64) ([]domain.Tour, error)
	ListDestinations(ctx context.Context) ([]string, error)
}

// TourWriter loads catalog entries.
type TourWriter interface {
	UpsertAgent(ctx context.Context, agent domain.TourAgent) (int64, error)
	CreateTour(ctx context.Context, tour domain.Tour) (int64, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
	SetTitle(ctx context.Context, conversationID, title string) error
	AppendMessage(ctx context.Context, msg domain.ChatMessage) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ChatMessage, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.ChatMessage, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
	GetMessage(ctx context.Context, userID, messageID string) (*domain.ChatMessage, error)
}

// ChatModel is a tool-calling chat completion model.
type ChatModel interface {
	Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelReply, error)
}

// RecommendationPublisher emits recommendation events.
type RecommendationPublisher interface {
	PublishRecommendation(ctx context.Context, event domain.RecommendationEvent) error
}

// RecommendationSubscriber consumes recommendation events until ctx is done.
type RecommendationSubscriber interface {
	SubscribeRecommendations(ctx context.Context, handler func(context.Context, domain.RecommendationEvent) error) error
}

// RecommendationStatsStore aggregates how often tours are recommended.
type RecommendationStatsStore interface {
	IncrementRecommended(ctx context.Context, tourIDs []int64, at time.Time) error
	TopRecommended(ctx context.Context, limit int) ([]domain.TourRecommendationStat, error)
}

// RecommendationObserver receives every completed recommendation, e.g. for metrics.
type RecommendationObserver interface {
	ObserveRecommendation(result domain.RecommendationResult, duration time.Duration)
}
