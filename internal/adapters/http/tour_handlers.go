package httpadapter

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

func (rt *Router) searchTours(w http.ResponseWriter, r *http.Request) {
	filter, err := tourFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "search tours", err))
		return
	}
	tours, err := rt.catalog.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours, "count": len(tours)})
}

func (rt *Router) listDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := rt.catalog.Destinations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": destinations})
}

func (rt *Router) topRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "top recommendations", fmt.Errorf("limit must be a positive integer")))
			return
		}
		limit = n
	}
	stats, err := rt.stats.Top(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stats == nil {
		stats = []domain.TourRecommendationStat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func tourFilterFromQuery(q url.Values) (domain.TourFilter, error) {
	filter := domain.TourFilter{
		DestinationContains: strings.TrimSpace(q.Get("destination")),
		TextContains:        strings.TrimSpace(q.Get("q")),
		MealPlan:            strings.TrimSpace(q.Get("meal_plan")),
	}

	var err error
	if filter.MinPrice, err = moneyParam(q, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = moneyParam(q, "max_price"); err != nil {
		return filter, err
	}
	if filter.StartFrom, err = dateParam(q, "start_from"); err != nil {
		return filter, err
	}
	if filter.StartTo, err = dateParam(q, "start_to"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(q.Get("visa_required")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("visa_required must be a boolean")
		}
		filter.VisaRequired = &v
	}

	switch order := domain.TourOrder(strings.TrimSpace(q.Get("order"))); order {
	case domain.TourOrderDefault, domain.TourOrderPrice, domain.TourOrderDestination, domain.TourOrderStartDate:
		filter.OrderBy = order
	default:
		return filter, fmt.Errorf("unknown order %q", order)
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func moneyParam(q url.Values, key string) (*domain.Money, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) {
		return nil, fmt.Errorf("%s must be a non-negative number", key)
	}
	m := domain.MoneyFromFloat(v)
	return &m, nil
}

func dateParam(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a YYYY-MM-DD date", key)
	}
	return &d, nil
}
