package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type fakeChatService struct {
	lastRequest domain.ChatRequest
	lastUserID  string
	response    *domain.ChatResponse
	err         error
	detail      *domain.ConversationDetail
	tours       []domain.FullTourView
	deleted     []string
}

func (f *fakeChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &domain.ChatResponse{Response: "ok", RecommendedTours: []domain.FullTourView{}, Success: true}, nil
}

func (f *fakeChatService) ListConversations(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	f.lastUserID = userID
	if userID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list conversations", context.Canceled)
	}
	return nil, f.err
}

func (f *fakeChatService) GetConversation(_ context.Context, userID, _ string) (*domain.ConversationDetail, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func (f *fakeChatService) DeleteConversation(_ context.Context, userID, conversationID string) error {
	f.lastUserID = userID
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, conversationID)
	return nil
}

func (f *fakeChatService) MessageRecommendedTours(_ context.Context, userID, _ string) ([]domain.FullTourView, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.tours, nil
}

type fakeCatalog struct {
	lastFilter   domain.TourFilter
	tours        []domain.FullTourView
	destinations []string
	err          error
}

func (f *fakeCatalog) Search(_ context.Context, filter domain.TourFilter) ([]domain.FullTourView, error) {
	f.lastFilter = filter
	return f.tours, f.err
}

func (f *fakeCatalog) Destinations(context.Context) ([]string, error) {
	return f.destinations, f.err
}

type fakeStatsReader struct {
	lastLimit int
	stats     []domain.TourRecommendationStat
}

func (f *fakeStatsReader) Top(_ context.Context, limit int) ([]domain.TourRecommendationStat, error) {
	f.lastLimit = limit
	return f.stats, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &fakeChatService{}, &fakeCatalog{}, &fakeStatsReader{}).Handler()
}
