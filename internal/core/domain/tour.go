package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type MealPlan string

const (
	MealPlanRoomOnly     MealPlan = "room_only"
	MealPlanBedBreakfast MealPlan = "bed_breakfast"
	MealPlanHalfBoard    MealPlan = "half_board"
	MealPlanFullBoard    MealPlan = "full_board"
	MealPlanAllInclusive MealPlan = "all_inclusive"
)

var mealPlanLabels = map[MealPlan]string{
	MealPlanRoomOnly:     "Room Only",
	MealPlanBedBreakfast: "Bed & Breakfast",
	MealPlanHalfBoard:    "Half Board",
	MealPlanFullBoard:    "Full Board",
	MealPlanAllInclusive: "All Inclusive",
}

// Label returns the display label, or the raw token for unknown plans.
func (m MealPlan) Label() string {
	if label, ok := mealPlanLabels[m]; ok {
		return label
	}
	return string(m)
}

func (m MealPlan) Valid() bool {
	_, ok := mealPlanLabels[m]
	return ok
}

type FlightType string

const (
	FlightTypeDirect  FlightType = "direct"
	FlightTypeLayover FlightType = "layover"
)

func (f FlightType) Label() string {
	switch f {
	case FlightTypeDirect:
		return "Direct Flight"
	case FlightTypeLayover:
		return "Flight with Layover"
	default:
		return string(f)
	}
}

func (f FlightType) Valid() bool {
	return f == FlightTypeDirect || f == FlightTypeLayover
}

// Money is a non-negative amount in cents.
type Money int64

// MoneyFromFloat converts a dollar amount to cents, saturating at the int64
// range. NaN converts to zero.
func MoneyFromFloat(v float64) Money {
	cents := math.Round(v * 100)
	switch {
	case math.IsNaN(cents):
		return 0
	case cents >= math.MaxInt64:
		return Money(math.MaxInt64)
	case cents <= math.MinInt64:
		return Money(math.MinInt64)
	}
	return Money(cents)
}

func (m Money) Float64() float64 {
	return float64(m) / 100
}

type TourAgent struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	CompanyName *string `json:"company_name,omitempty"`
}

// DisplayName falls back to the username when no full name is set.
func (a TourAgent) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	if full == "" {
		return a.Username
	}
	return full
}

type Tour struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Destination  string     `json:"destination"`
	HotelName    string     `json:"hotel_name"`
	Price        Money      `json:"price"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	VisaRequired bool       `json:"visa_required"`
	MealPlan     MealPlan   `json:"meal_plan"`
	FlightType   FlightType `json:"flight_type"`
	IsActive     bool       `json:"is_active"`
	Agent        TourAgent  `json:"agent"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (t Tour) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("title is required"))
	}
	if strings.TrimSpace(t.Destination) == "" {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("destination is required for %q", t.Title))
	}
	if t.Price < 0 {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("price must be non-negative for %q", t.Title))
	}
	if !t.EndDate.After(t.StartDate) {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("end_date must be after start_date for %q", t.Title))
	}
	if !t.MealPlan.Valid() {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("unknown meal plan %q", t.MealPlan))
	}
	if !t.FlightType.Valid() {
		return WrapError(ErrInvalidInput, "validate tour", fmt.Errorf("unknown flight type %q", t.FlightType))
	}
	return nil
}

// TourFilter is the predicate set understood by the tour store.
// Zero values mean "no constraint".
type TourFilter struct {
	DestinationContains string
	TextContains        string
	MinPrice            *Money
	MaxPrice            *Money
	VisaRequired        *bool
	MealPlan            string
	StartFrom           *time.Time
	StartTo             *time.Time
	OrderBy             TourOrder
	Limit               int
}

type TourOrder string

const (
	TourOrderDefault     TourOrder = ""
	TourOrderPrice       TourOrder = "price"
	TourOrderDestination TourOrder = "destination"
	TourOrderStartDate   TourOrder = "start_date"
)
