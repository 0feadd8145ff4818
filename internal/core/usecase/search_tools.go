package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

const (
	ToolSearchByDestination = "search_tours_by_destination"
	ToolSearchByPriceRange  = "search_tours_by_price_range"
	ToolSearchByKeyword     = "search_tours_by_keyword"
	ToolListDestinations    = "get_all_available_destinations"
	ToolSearchByVisa        = "search_tours_by_visa_requirement"
	ToolSearchByDateRange   = "search_tours_by_date_range"
	ToolSearchByMealPlan    = "search_tours_by_meal_plan"
)

const (
	defaultMinPrice = 0.0
	defaultMaxPrice = 10000.0
	toolDateLayout  = "2006-01-02"
	toolResultLimit = domain.MaxRecommendedTours
)

var mealPlanAliases = map[string]domain.MealPlan{
	"room only":         domain.MealPlanRoomOnly,
	"bed and breakfast": domain.MealPlanBedBreakfast,
	"breakfast":         domain.MealPlanBedBreakfast,
	"half board":        domain.MealPlanHalfBoard,
	"full board":        domain.MealPlanFullBoard,
	"all inclusive":     domain.MealPlanAllInclusive,
	"all-inclusive":     domain.MealPlanAllInclusive,
}

// ToolResult is the output of one search tool. Destination listing fills
// Destinations; every other tool fills Tours.
type ToolResult struct {
	Tours        []domain.MinimalTourView
	Destinations []string
}

func (r ToolResult) Count() int {
	if r.Destinations != nil {
		return len(r.Destinations)
	}
	return len(r.Tours)
}

// Payload is the JSON-ready value returned to the model.
func (r ToolResult) Payload() any {
	if r.Destinations != nil {
		return r.Destinations
	}
	if r.Tours == nil {
		return []domain.MinimalTourView{}
	}
	return r.Tours
}

func (r ToolResult) JSON() string {
	raw, err := json.Marshal(r.Payload())
	if err != nil {
		return "[]"
	}
	return string(raw)
}

type ToolHandler func(ctx context.Context, args map[string]any) ToolResult

type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  []domain.ToolParameter
	Handler     ToolHandler
}

func (d ToolDescriptor) Definition() domain.ToolDefinition {
	params := make([]domain.ToolParameter, len(d.Parameters))
	copy(params, d.Parameters)
	return domain.ToolDefinition{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  params,
	}
}

// ToolSet is the fixed catalog of search tools. It is built once and is
// read-only afterwards.
type ToolSet struct {
	store       ports.TourStore
	descriptors []ToolDescriptor
	byName      map[string]int
}

func NewSearchToolSet(store ports.TourStore) *ToolSet {
	ts := &ToolSet{store: store}
	ts.descriptors = []ToolDescriptor{
		{
			Name:        ToolSearchByDestination,
			Description: "Search for tours by destination. Use this when the user mentions a specific place, country or region.",
			Parameters: []domain.ToolParameter{
				{Name: "destination", Type: "string", Description: "Destination, country or region to search for", Required: true},
			},
			Handler: ts.searchByDestination,
		},
		{
			Name:        ToolSearchByPriceRange,
			Description: "Search for tours within a specific price range. Use for budget or luxury requests.",
			Parameters: []domain.ToolParameter{
				{Name: "min_price", Type: "number", Description: "Minimum price in USD (default 0)"},
				{Name: "max_price", Type: "number", Description: "Maximum price in USD (default 10000)"},
			},
			Handler: ts.searchByPriceRange,
		},
		{
			Name:        ToolSearchByKeyword,
			Description: "Search for tours by keyword in title or description. Use for activities like adventure, cultural, beach, safari, hiking or romantic.",
			Parameters: []domain.ToolParameter{
				{Name: "keyword", Type: "string", Description: "Keyword to look for in tour title or description", Required: true},
			},
			Handler: ts.searchByKeyword,
		},
		{
			Name:        ToolListDestinations,
			Description: "Get the list of all destinations that currently have active tours.",
			Handler:     ts.listDestinations,
		},
		{
			Name:        ToolSearchByVisa,
			Description: "Search for tours by visa requirement. Use when the user asks about visa-free travel or visa requirements.",
			Parameters: []domain.ToolParameter{
				{Name: "visa_required", Type: "boolean", Description: "true for tours that require a visa, false for visa-free tours", Required: true},
			},
			Handler: ts.searchByVisa,
		},
		{
			Name:        ToolSearchByDateRange,
			Description: "Search for tours starting within a date range. Dates use YYYY-MM-DD; end_date is optional.",
			Parameters: []domain.ToolParameter{
				{Name: "start_date", Type: "string", Description: "Earliest start date, YYYY-MM-DD", Required: true},
				{Name: "end_date", Type: "string", Description: "Latest start date, YYYY-MM-DD"},
			},
			Handler: ts.searchByDateRange,
		},
		{
			Name:        ToolSearchByMealPlan,
			Description: "Search for tours by meal plan, e.g. all inclusive, breakfast, half board, full board or room only.",
			Parameters: []domain.ToolParameter{
				{Name: "meal_plan", Type: "string", Description: "Meal plan preference", Required: true},
			},
			Handler: ts.searchByMealPlan,
		},
	}

	ts.byName = make(map[string]int, len(ts.descriptors))
	for i, d := range ts.descriptors {
		ts.byName[d.Name] = i
	}
	return ts
}

func (ts *ToolSet) Descriptors() []ToolDescriptor {
	out := make([]ToolDescriptor, len(ts.descriptors))
	copy(out, ts.descriptors)
	return out
}

func (ts *ToolSet) Definitions() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, 0, len(ts.descriptors))
	for _, d := range ts.descriptors {
		out = append(out, d.Definition())
	}
	return out
}

func (ts *ToolSet) Lookup(name string) (ToolDescriptor, bool) {
	idx, ok := ts.byName[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return ts.descriptors[idx], true
}

// Invoke runs a tool by name. The only error is an unknown tool name;
// failures inside a tool yield an empty result.
func (ts *ToolSet) Invoke(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	descriptor, ok := ts.Lookup(name)
	if !ok {
		return ToolResult{}, domain.WrapError(domain.ErrInvalidInput, "invoke tool", fmt.Errorf("unknown tool %q", name))
	}
	result := descriptor.Handler(ctx, args)
	slog.Info("tool_call", "tool", name, "arguments", args, "results", result.Count())
	return result, nil
}

func (ts *ToolSet) searchByDestination(ctx context.Context, args map[string]any) ToolResult {
	destination := strings.TrimSpace(stringInput(args, "destination", ""))
	if destination == "" {
		return toolFailure(ToolSearchByDestination, fmt.Errorf("destination is required"))
	}
	return ts.find(ctx, ToolSearchByDestination, domain.TourFilter{DestinationContains: destination})
}

func (ts *ToolSet) searchByPriceRange(ctx context.Context, args map[string]any) ToolResult {
	minPrice := domain.MoneyFromFloat(floatInput(args, "min_price", defaultMinPrice))
	maxPrice := domain.MoneyFromFloat(floatInput(args, "max_price", defaultMaxPrice))
	return ts.find(ctx, ToolSearchByPriceRange, domain.TourFilter{
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		OrderBy:  domain.TourOrderPrice,
	})
}

func (ts *ToolSet) searchByKeyword(ctx context.Context, args map[string]any) ToolResult {
	keyword := strings.TrimSpace(stringInput(args, "keyword", ""))
	if keyword == "" {
		return toolFailure(ToolSearchByKeyword, fmt.Errorf("keyword is required"))
	}
	return ts.find(ctx, ToolSearchByKeyword, domain.TourFilter{TextContains: keyword})
}

func (ts *ToolSet) listDestinations(ctx context.Context, _ map[string]any) ToolResult {
	destinations, err := ts.store.ListDestinations(ctx)
	if err != nil {
		return toolFailure(ToolListDestinations, err)
	}
	if destinations == nil {
		destinations = []string{}
	}
	return ToolResult{Destinations: destinations}
}

func (ts *ToolSet) searchByVisa(ctx context.Context, args map[string]any) ToolResult {
	visaRequired, ok := boolArg(args, "visa_required")
	if !ok {
		return toolFailure(ToolSearchByVisa, fmt.Errorf("visa_required must be a boolean"))
	}
	return ts.find(ctx, ToolSearchByVisa, domain.TourFilter{
		VisaRequired: &visaRequired,
		OrderBy:      domain.TourOrderDestination,
	})
}

func (ts *ToolSet) searchByDateRange(ctx context.Context, args map[string]any) ToolResult {
	start, err := time.Parse(toolDateLayout, strings.TrimSpace(stringInput(args, "start_date", "")))
	if err != nil {
		return toolFailure(ToolSearchByDateRange, fmt.Errorf("parse start_date: %w", err))
	}
	filter := domain.TourFilter{
		StartFrom: &start,
		OrderBy:   domain.TourOrderStartDate,
	}
	if rawEnd := strings.TrimSpace(stringInput(args, "end_date", "")); rawEnd != "" {
		end, err := time.Parse(toolDateLayout, rawEnd)
		if err != nil {
			return toolFailure(ToolSearchByDateRange, fmt.Errorf("parse end_date: %w", err))
		}
		filter.StartTo = &end
	}
	return ts.find(ctx, ToolSearchByDateRange, filter)
}

func (ts *ToolSet) searchByMealPlan(ctx context.Context, args map[string]any) ToolResult {
	raw := strings.TrimSpace(stringInput(args, "meal_plan", ""))
	if raw == "" {
		return toolFailure(ToolSearchByMealPlan, fmt.Errorf("meal_plan is required"))
	}
	return ts.find(ctx, ToolSearchByMealPlan, domain.TourFilter{
		MealPlan: NormalizeMealPlan(raw),
		OrderBy:  domain.TourOrderDestination,
	})
}

func (ts *ToolSet) find(ctx context.Context, tool string, filter domain.TourFilter) ToolResult {
	filter.Limit = toolResultLimit
	tours, err := ts.store.Find(ctx, filter)
	if err != nil {
		return toolFailure(tool, err)
	}
	return ToolResult{Tours: ToMinimal(tours)}
}

// NormalizeMealPlan maps free-text meal preferences to a meal plan token,
// falling back to the lower-cased input.
func NormalizeMealPlan(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if plan, ok := mealPlanAliases[lowered]; ok {
		return string(plan)
	}
	return lowered
}

func toolFailure(tool string, err error) ToolResult {
	slog.Warn("tool_call_failed", "tool", tool, "error", err)
	return ToolResult{}
}

func stringInput(input map[string]any, key, fallback string) string {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

// floatInput reads a numeric argument; non-finite values use the fallback.
func floatInput(input map[string]any, key string, fallback float64) float64 {
	v := rawFloatInput(input, key, fallback)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func rawFloatInput(input map[string]any, key string, fallback float64) float64 {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case json.Number:
		n, err := typed.Float64()
		if err != nil {
			return fallback
		}
		return n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

func boolArg(input map[string]any, key string) (bool, bool) {
	if input == nil {
		return false, false
	}
	switch typed := input[key].(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}
