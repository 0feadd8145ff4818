package usecase

import (
	"github.com/oapi-codegen/runtime/types"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const descriptionPreviewRunes = 200

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// ToMinimal projects at most five tours to the shape shown to the model.
func ToMinimal(tours []domain.Tour) []domain.MinimalTourView {
	tours = capTours(tours)
	out := make([]domain.MinimalTourView, 0, len(tours))
	for _, tour := range tours {
		out = append(out, domain.MinimalTourView{
			ID:          tour.ID,
			Title:       tour.Title,
			Destination: tour.Destination,
		})
	}
	return out
}

// ToFull projects at most five tours to the display shape.
func ToFull(tours []domain.Tour) []domain.FullTourView {
	tours = capTours(tours)
	out := make([]domain.FullTourView, 0, len(tours))
	for _, tour := range tours {
		out = append(out, fullView(tour))
	}
	return out
}

func fullView(tour domain.Tour) domain.FullTourView {
	var company *string
	if tour.Agent.CompanyName != nil && *tour.Agent.CompanyName != "" {
		name := *tour.Agent.CompanyName
		company = &name
	}
	return domain.FullTourView{
		ID:             tour.ID,
		Title:          tour.Title,
		Description:    truncateDescription(tour.Description),
		Destination:    tour.Destination,
		HotelName:      tour.HotelName,
		Price:          tour.Price.Float64(),
		FormattedPrice: FormatPrice(tour.Price),
		StartDate:      types.Date{Time: tour.StartDate},
		EndDate:        types.Date{Time: tour.EndDate},
		VisaRequired:   tour.VisaRequired,
		MealPlan:       tour.MealPlan.Label(),
		FlightType:     tour.FlightType.Label(),
		AgentName:      tour.Agent.DisplayName(),
		CompanyName:    company,
	}
}

// FormatPrice renders an amount as US dollars with digit grouping, e.g. $2,899.00.
func FormatPrice(amount domain.Money) string {
	return pricePrinter.Sprintf("$%.2f", amount.Float64())
}

func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= descriptionPreviewRunes {
		return description
	}
	return string(runes[:descriptionPreviewRunes]) + "..."
}

func capTours(tours []domain.Tour) []domain.Tour {
	if len(tours) > domain.MaxRecommendedTours {
		return tours[:domain.MaxRecommendedTours]
	}
	return tours
}
