package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

const (
	conversationTitleRunes = 50
	independentAgentLabel  = "Independent Agent"
)

type ChatUseCase struct {
	recommender   ports.TourRecommender
	conversations ports.ConversationStore
	tours         ports.TourStore
	publisher     ports.RecommendationPublisher
	historyLimit  int
	now           func() time.Time
}

func NewChatUseCase(
	recommender ports.TourRecommender,
	conversations ports.ConversationStore,
	tours ports.TourStore,
	publisher ports.RecommendationPublisher,
	historyLimit int,
) *ChatUseCase {
	if historyLimit <= 0 || historyLimit > domain.MaxHistoryTurns {
		historyLimit = domain.MaxHistoryTurns
	}
	return &ChatUseCase{
		recommender:   recommender,
		conversations: conversations,
		tours:         tours,
		publisher:     publisher,
		historyLimit:  historyLimit,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ChatUseCase) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("message is required"))
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		result := uc.recommender.Recommend(ctx, message, nil)
		uc.publish(ctx, "", "", result)
		return &domain.ChatResponse{
			Response:         result.Response,
			RecommendedTours: result.RecommendedTours,
			Success:          true,
		}, nil
	}

	conv, history, err := uc.loadConversation(ctx, userID, strings.TrimSpace(req.ConversationID))
	if err != nil {
		return nil, err
	}
	if conv == nil {
		now := uc.now()
		conv = &domain.Conversation{
			ID:        uuid.NewString(),
			UserID:    userID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uc.conversations.CreateConversation(ctx, *conv); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	}

	if err := uc.conversations.AppendMessage(ctx, domain.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         domain.SenderUser,
		Content:        message,
		CreatedAt:      uc.now(),
	}); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	result := uc.recommender.Recommend(ctx, message, history)

	tourIDs := make([]int64, 0, len(result.RecommendedTours))
	for _, tour := range result.RecommendedTours {
		tourIDs = append(tourIDs, tour.ID)
	}
	if err := uc.conversations.AppendMessage(ctx, domain.ChatMessage{
		ID:                 uuid.NewString(),
		ConversationID:     conv.ID,
		Sender:             domain.SenderAI,
		Content:            result.Response,
		RecommendedTourIDs: tourIDs,
		CreatedAt:          uc.now(),
	}); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	if conv.Title == "" {
		count, err := uc.conversations.CountMessages(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
		if count >= 2 {
			conv.Title = conversationTitle(message)
			if err := uc.conversations.SetTitle(ctx, conv.ID, conv.Title); err != nil {
				return nil, fmt.Errorf("set conversation title: %w", err)
			}
		}
	}

	uc.publish(ctx, conv.ID, userID, result)

	return &domain.ChatResponse{
		Response:          result.Response,
		RecommendedTours:  result.RecommendedTours,
		Success:           true,
		ConversationID:    conv.ID,
		ConversationTitle: conv.Title,
	}, nil
}

// loadConversation returns nil when the id is empty or unknown for the user.
// History holds the most recent turns in chronological order.
func (uc *ChatUseCase) loadConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, []string, error) {
	if conversationID == "" {
		return nil, nil, nil
	}
	conv, err := uc.conversations.GetConversation(ctx, userID, conversationID)
	if err != nil {
		if domain.IsKind(err, domain.ErrConversationNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}

	messages, err := uc.conversations.ListRecentMessages(ctx, conv.ID, uc.historyLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]string, 0, len(messages))
	for _, msg := range messages {
		history = append(history, msg.HistoryLine())
	}
	return conv, history, nil
}

func (uc *ChatUseCase) publish(ctx context.Context, conversationID, userID string, result domain.RecommendationResult) {
	if uc.publisher == nil {
		return
	}
	ids := make([]int64, 0, len(result.RecommendedTours))
	for _, tour := range result.RecommendedTours {
		ids = append(ids, tour.ID)
	}
	event := domain.RecommendationEvent{
		EventID:        uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Mode:           result.Mode,
		TourIDs:        ids,
		CreatedAt:      uc.now(),
	}
	if err := uc.publisher.PublishRecommendation(ctx, event); err != nil {
		slog.Warn("recommendation_event_publish_failed", "event_id", event.EventID, "error", err)
	}
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list conversations", fmt.Errorf("user id is required"))
	}
	return uc.conversations.ListConversations(ctx, userID)
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*domain.ConversationDetail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get conversation", fmt.Errorf("user id is required"))
	}
	conv, err := uc.conversations.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := uc.conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return &domain.ConversationDetail{Conversation: *conv, Messages: messages}, nil
}

func (uc *ChatUseCase) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, "delete conversation", fmt.Errorf("user id is required"))
	}
	return uc.conversations.DeleteConversation(ctx, userID, conversationID)
}

// MessageRecommendedTours returns the display views of the tours attached to
// an assistant message. Agents without a company are labelled independent.
func (uc *ChatUseCase) MessageRecommendedTours(ctx context.Context, userID, messageID string) ([]domain.FullTourView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "message recommended tours", fmt.Errorf("user id is required"))
	}
	msg, err := uc.conversations.GetMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != domain.SenderAI || len(msg.RecommendedTourIDs) == 0 {
		return []domain.FullTourView{}, nil
	}
	tours, err := uc.tours.GetActiveByIDs(ctx, msg.RecommendedTourIDs)
	if err != nil {
		return nil, fmt.Errorf("load recommended tours: %w", err)
	}
	views := ToFull(tours)
	for i := range views {
		if views[i].CompanyName == nil {
			label := independentAgentLabel
			views[i].CompanyName = &label
		}
	}
	return views, nil
}

func conversationTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= conversationTitleRunes {
		return message
	}
	return string(runes[:conversationTitleRunes]) + "..."
}
