package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

// RecommendationStatsUseCase folds recommendation events into per-tour counters.
type RecommendationStatsUseCase struct {
	stats ports.RecommendationStatsStore
}

func NewRecommendationStatsUseCase(stats ports.RecommendationStatsStore) *RecommendationStatsUseCase {
	return &RecommendationStatsUseCase{stats: stats}
}

func (uc *RecommendationStatsUseCase) Record(ctx context.Context, event domain.RecommendationEvent) error {
	if len(event.TourIDs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(event.TourIDs))
	seen := make(map[int64]struct{}, len(event.TourIDs))
	for _, id := range event.TourIDs {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := uc.stats.IncrementRecommended(ctx, ids, at); err != nil {
		return fmt.Errorf("record recommendation %s: %w", event.EventID, err)
	}
	return nil
}

func (uc *RecommendationStatsUseCase) Top(ctx context.Context, limit int) ([]domain.TourRecommendationStat, error) {
	if limit <= 0 {
		limit = 10
	}
	return uc.stats.TopRecommended(ctx, limit)
}
