package usecase

import (
	"strings"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const fallbackToursPerBranch = 2

const (
	replyFollowUp      = "I can help you with tour details! Could you tell me which destination or type of tour you're interested in so I can find the best options for you?"
	replyGreeting      = "Hello! I'm your AI travel assistant. I can help you find amazing tour packages based on your preferences. Tell me what kind of experience you're looking for - adventure, relaxation, cultural exploration, or a specific destination you have in mind!"
	replyAcknowledge   = "You're welcome! Feel free to ask me about any destinations or types of tours you're interested in. I can help you find the perfect travel experience!"
	replyClarification = "I'd love to help you find the perfect tour! Could you tell me more about what you're looking for? For example, your preferred destination, budget range, or type of activities you enjoy?"
)

var (
	followUpKeywords     = []string{"visa", "hotel", "price", "cost", "meal", "flight", "date", "when"}
	greetingPhrases      = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "how are you"}
	acknowledgePhrases   = []string{"thanks", "thank you", "ok", "okay", "yes", "no", "maybe"}
	luxuryPriceThreshold = domain.MoneyFromFloat(2500)
	budgetPriceCeiling   = domain.MoneyFromFloat(1000)
)

type fallbackRule struct {
	triggers []string
	match    func(domain.Tour) bool
	reply    string
}

// Evaluated in order; the first rule whose trigger appears in the query wins.
var fallbackRules = []fallbackRule{
	{
		triggers: []string{"japan", "tokyo"},
		match:    destinationContainsAny("Japan"),
		reply:    "Great! I found some amazing tours in Japan that offer incredible cultural experiences!",
	},
	{
		triggers: []string{"thailand", "asia"},
		match:    destinationContainsAny("Thailand", "Japan", "Indonesia"),
		reply:    "Excellent! I discovered some fantastic tours in Asia that would be perfect for you!",
	},
	{
		triggers: []string{"europe", "switzerland"},
		match:    destinationContainsAny("Switzerland", "Greece", "Norway", "Iceland"),
		reply:    "Perfect! I found some wonderful European tours with stunning alpine experiences!",
	},
	{
		triggers: []string{"adventure", "hiking"},
		match: func(t domain.Tour) bool {
			title := strings.ToLower(t.Title)
			return containsAny(title, "adventure", "trek", "hiking", "wilderness")
		},
		reply: "Amazing! I found some thrilling adventure tours that will get your adrenaline pumping!",
	},
	{
		triggers: []string{"luxury", "expensive"},
		match:    func(t domain.Tour) bool { return t.Price >= luxuryPriceThreshold },
		reply:    "Fantastic! I found some luxurious tours with premium accommodations and experiences!",
	},
	{
		triggers: []string{"budget", "cheap"},
		match:    func(t domain.Tour) bool { return t.Price < budgetPriceCeiling },
		reply:    "Great news! I found some excellent budget-friendly tours that offer amazing value!",
	},
	{
		triggers: []string{"tour", "travel", "vacation", "trip", "destination", "where", "visit"},
		match:    func(domain.Tour) bool { return true },
		reply:    "Perfect! I found some wonderful tour options that match what you're looking for!",
	},
}

// Fallback answers a query with fixed keyword rules over the active catalog.
// It is deterministic and never fails; activeTours is expected in store
// default order and may be nil when the catalog could not be loaded.
func Fallback(query string, history []string, activeTours []domain.Tour) domain.RecommendationResult {
	q := strings.ToLower(strings.TrimSpace(query))

	if len(history) > 0 && containsAny(q, followUpKeywords...) {
		return fallbackReply(replyFollowUp, nil)
	}
	if isGreeting(q) {
		return fallbackReply(replyGreeting, nil)
	}
	for _, phrase := range acknowledgePhrases {
		if q == phrase {
			return fallbackReply(replyAcknowledge, nil)
		}
	}

	for _, rule := range fallbackRules {
		if !containsAny(q, rule.triggers...) {
			continue
		}
		matched := make([]domain.Tour, 0, fallbackToursPerBranch)
		for _, tour := range activeTours {
			if !tour.IsActive || !rule.match(tour) {
				continue
			}
			matched = append(matched, tour)
			if len(matched) == fallbackToursPerBranch {
				break
			}
		}
		if len(matched) == 0 {
			return fallbackReply(replyClarification, nil)
		}
		return fallbackReply(rule.reply, matched)
	}

	return fallbackReply(replyClarification, nil)
}

func fallbackReply(text string, tours []domain.Tour) domain.RecommendationResult {
	return domain.RecommendationResult{
		Response:         text,
		RecommendedTours: ToFull(tours),
		Mode:             domain.RecommendationModeFallback,
	}
}

func isGreeting(q string) bool {
	for _, greeting := range greetingPhrases {
		if q == greeting || strings.HasPrefix(q, greeting+" ") {
			return true
		}
	}
	return false
}

func destinationContainsAny(countries ...string) func(domain.Tour) bool {
	return func(t domain.Tour) bool {
		return containsAny(t.Destination, countries...)
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
