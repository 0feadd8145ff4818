package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type fakeTourStore struct {
	mu           sync.Mutex
	tours        []domain.Tour
	destinations []string
	err          error
	ignoreLimit  bool

	findCalls    int
	lastFilter   domain.TourFilter
	lastIDLookup []int64
}

func (f *fakeTourStore) Find(_ context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Tour, 0)
	for _, tour := range f.tours {
		if !tour.IsActive {
			continue
		}
		if filter.DestinationContains != "" && !strings.Contains(strings.ToLower(tour.Destination), strings.ToLower(filter.DestinationContains)) {
			continue
		}
		if filter.TextContains != "" {
			needle := strings.ToLower(filter.TextContains)
			if !strings.Contains(strings.ToLower(tour.Title), needle) && !strings.Contains(strings.ToLower(tour.Description), needle) {
				continue
			}
		}
		if filter.MinPrice != nil && tour.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && tour.Price > *filter.MaxPrice {
			continue
		}
		if filter.VisaRequired != nil && tour.VisaRequired != *filter.VisaRequired {
			continue
		}
		if filter.MealPlan != "" && string(tour.MealPlan) != filter.MealPlan {
			continue
		}
		if filter.StartFrom != nil && tour.StartDate.Before(*filter.StartFrom) {
			continue
		}
		if filter.StartTo != nil && tour.StartDate.After(*filter.StartTo) {
			continue
		}
		out = append(out, tour)
	}
	if filter.OrderBy == domain.TourOrderPrice {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	if !f.ignoreLimit && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTourStore) ListActive(_ context.Context) ([]domain.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Tour, 0, len(f.tours))
	for _, tour := range f.tours {
		if tour.IsActive {
			out = append(out, tour)
		}
	}
	return out, nil
}

func (f *fakeTourStore) GetActiveByIDs(_ context.Context, ids []int64) ([]domain.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastIDLookup = append([]int64(nil), ids...)
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]domain.Tour, 0, len(ids))
	for _, tour := range f.tours {
		if _, ok := wanted[tour.ID]; ok && tour.IsActive {
			out = append(out, tour)
		}
	}
	return out, nil
}

func (f *fakeTourStore) ListDestinations(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.destinations, nil
}

type scriptedModel struct {
	mu       sync.Mutex
	replies  []domain.ModelReply
	errs     []error
	requests []domain.ModelRequest
}

func (m *scriptedModel) Complete(_ context.Context, req domain.ModelRequest) (domain.ModelReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return domain.ModelReply{}, err
		}
	}
	if len(m.replies) == 0 {
		return domain.ModelReply{Message: domain.ModelMessage{Role: domain.RoleAssistant, Content: "done"}}, nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func toolCallReply(calls ...domain.ModelToolCall) domain.ModelReply {
	return domain.ModelReply{Message: domain.ModelMessage{Role: domain.RoleAssistant, ToolCalls: calls}}
}

func finalReply(text string) domain.ModelReply {
	return domain.ModelReply{Message: domain.ModelMessage{Role: domain.RoleAssistant, Content: text}}
}

func sampleTour(id int64, title, destination string, price float64) domain.Tour {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(id))
	return domain.Tour{
		ID:          id,
		Title:       title,
		Description: fmt.Sprintf("%s description", title),
		Destination: destination,
		HotelName:   "Hotel " + title,
		Price:       domain.MoneyFromFloat(price),
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 7),
		MealPlan:    domain.MealPlanHalfBoard,
		FlightType:  domain.FlightTypeDirect,
		IsActive:    true,
		Agent:       domain.TourAgent{Username: "agent1"},
	}
}

func sampleCatalog() []domain.Tour {
	return []domain.Tour{
		sampleTour(1, "Bali Paradise Escape", "Bali, Indonesia", 2899),
		sampleTour(2, "Swiss Alps Adventure", "Zermatt, Switzerland", 4299),
		sampleTour(3, "Tokyo Cultural Journey", "Tokyo, Japan", 3599),
		sampleTour(4, "Santorini Sunset Romance", "Santorini, Greece", 2499),
		sampleTour(5, "Patagonia Wilderness Trek", "Patagonia, Argentina", 3799),
		sampleTour(6, "Lisbon City Break", "Lisbon, Portugal", 899),
		sampleTour(7, "Thai Island Hopping", "Phuket, Thailand", 3199),
		sampleTour(8, "Kyoto Temples", "Kyoto, Japan", 950),
	}
}
