package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

const defaultCatalogLimit = 50

// CatalogUseCase serves the read API over active tours.
type CatalogUseCase struct {
	store ports.TourStore
}

func NewCatalogUseCase(store ports.TourStore) *CatalogUseCase {
	return &CatalogUseCase{store: store}
}

func (uc *CatalogUseCase) Search(ctx context.Context, filter domain.TourFilter) ([]domain.FullTourView, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search tours", fmt.Errorf("min_price exceeds max_price"))
	}
	if filter.MealPlan != "" {
		filter.MealPlan = NormalizeMealPlan(filter.MealPlan)
	}
	if filter.Limit <= 0 || filter.Limit > defaultCatalogLimit {
		filter.Limit = defaultCatalogLimit
	}
	tours, err := uc.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find tours: %w", err)
	}
	out := make([]domain.FullTourView, 0, len(tours))
	for _, tour := range tours {
		out = append(out, fullView(tour))
	}
	return out, nil
}

// Destinations returns distinct non-blank destinations sorted alphabetically.
func (uc *CatalogUseCase) Destinations(ctx context.Context) ([]string, error) {
	raw, err := uc.store.ListDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, destination := range raw {
		destination = strings.TrimSpace(destination)
		if destination == "" {
			continue
		}
		if _, ok := seen[destination]; ok {
			continue
		}
		seen[destination] = struct{}{}
		out = append(out, destination)
	}
	sort.Strings(out)
	return out, nil
}
