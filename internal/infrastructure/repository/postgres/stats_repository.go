package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type StatsRepository struct {
	sb sq.StatementBuilderType
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db),
	}
}

// IncrementRecommended bumps every tour's counter by one in a single upsert.
// Callers pass distinct ids.
func (r *StatsRepository) IncrementRecommended(ctx context.Context, tourIDs []int64, at time.Time) error {
	if len(tourIDs) == 0 {
		return nil
	}
	qry := r.sb.
		Insert("tour_recommendation_stats").
		Columns("tour_id", "times_recommended", "last_recommended_at")
	for _, id := range tourIDs {
		qry = qry.Values(id, 1, at)
	}
	_, err := qry.
		Suffix("ON CONFLICT (tour_id) DO UPDATE SET times_recommended = tour_recommendation_stats.times_recommended + 1, last_recommended_at = GREATEST(tour_recommendation_stats.last_recommended_at, EXCLUDED.last_recommended_at)").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("increment recommendation stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) TopRecommended(ctx context.Context, limit int) ([]domain.TourRecommendationStat, error) {
	if limit <= 0 {
		return []domain.TourRecommendationStat{}, nil
	}
	rows, err := r.sb.
		Select("tour_id", "times_recommended", "last_recommended_at").
		From("tour_recommendation_stats").
		OrderBy("times_recommended DESC", "tour_id ASC").
		Limit(uint64(limit)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("top recommended tours: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TourRecommendationStat, 0, limit)
	for rows.Next() {
		var stat domain.TourRecommendationStat
		if err := rows.Scan(&stat.TourID, &stat.TimesRecommended, &stat.LastRecommendedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation stat: %w", err)
		}
		out = append(out, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation stats: %w", err)
	}
	return out, nil
}
