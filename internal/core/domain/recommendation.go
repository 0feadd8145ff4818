package domain

import (
	"time"

	"github.com/oapi-codegen/runtime/types"
)

const (
	MaxRecommendedTours = 5
	MaxHistoryTurns     = 10
)

// MinimalTourView is the only tour shape handed to the language model.
type MinimalTourView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Destination string `json:"destination"`
}

// FullTourView is the display shape returned to end users.
type FullTourView struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Destination    string     `json:"destination"`
	HotelName      string     `json:"hotel_name"`
	Price          float64    `json:"price"`
	FormattedPrice string     `json:"formatted_price"`
	StartDate      types.Date `json:"start_date"`
	EndDate        types.Date `json:"end_date"`
	VisaRequired   bool       `json:"visa_required"`
	MealPlan       string     `json:"meal_plan"`
	FlightType     string     `json:"flight_type"`
	AgentName      string     `json:"agent_name"`
	CompanyName    *string    `json:"company_name"`
}

type RecommendationMode string

const (
	RecommendationModeAgent    RecommendationMode = "agent"
	RecommendationModeFallback RecommendationMode = "fallback"
)

type ToolInvocation struct {
	Tool         string            `json:"tool"`
	Arguments    map[string]any    `json:"arguments"`
	Tours        []MinimalTourView `json:"tours,omitempty"`
	Destinations []string          `json:"destinations,omitempty"`
}

type RecommendationResult struct {
	Response         string         `json:"response"`
	RecommendedTours []FullTourView `json:"recommended_tours"`

	Mode           RecommendationMode `json:"-"`
	FallbackReason string             `json:"-"`
	ToolCalls      []ToolInvocation   `json:"-"`
	Usage          AgentUsage         `json:"-"`
}

// AgentUsage summarises the model traffic of one agent run.
type AgentUsage struct {
	Model            string
	Iterations       int
	PromptTokens     int
	CompletionTokens int
}

// RecommendationEvent is published after each answered chat message.
type RecommendationEvent struct {
	EventID        string             `json:"event_id"`
	ConversationID string             `json:"conversation_id,omitempty"`
	UserID         string             `json:"user_id,omitempty"`
	Mode           RecommendationMode `json:"mode"`
	TourIDs        []int64            `json:"tour_ids"`
	CreatedAt      time.Time          `json:"created_at"`
}

type TourRecommendationStat struct {
	TourID            int64     `json:"tour_id"`
	TimesRecommended  int64     `json:"times_recommended"`
	LastRecommendedAt time.Time `json:"last_recommended_at"`
}
