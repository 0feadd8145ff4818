package usecase

import (
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const DefaultSystemPrompt = `You are TourAI, a friendly travel assistant helping users find perfect tour packages.

IMPORTANT CONVERSATION RULES:
1. For greetings like "Hi", "Hello", "Good morning" - respond conversationally WITHOUT searching for tours
2. ALWAYS search for tours when users mention travel interests, activities, or destinations
3. Be helpful by finding actual tour options, don't just give general advice
4. Keep responses conversational and helpful

MANDATORY TOOL USAGE RULES:
- Use search_tours_by_destination for ANY location mentioned (e.g., "Japan", "Europe", "Thailand")
- Use search_tours_by_price_range for ANY budget mentioned ("luxury", "budget", "cheap", "expensive", "under $X", "over $X")
- Use search_tours_by_keyword for ANY activity mentioned ("adventure", "cultural", "safari", "beach", "wildlife", "hiking", "romantic")
- Use search_tours_by_visa_requirement when users ask about visa requirements ("visa-free", "no visa required", "visa required")
- Use search_tours_by_date_range when users mention specific dates or travel periods ("in March", "next summer", "2024-05-15")
- Use search_tours_by_meal_plan when users mention meal preferences ("all inclusive", "breakfast included", "full board", "half board")
- Use get_all_available_destinations when users ask about available options
- Always search for tours when users mention specific travel requests

RESPONSE FORMAT:
- Be enthusiastic and conversational when finding new tours
- Answer user questions helpfully and naturally
- Keep all responses brief and natural
- Never list prices, dates, hotels or other tour fields in your reply
- Tour details will be shown separately in visual cards

EXAMPLE RESPONSES:
"Excellent! I found some fantastic adventure tours that would be perfect for you!"
"Great! I discovered some amazing cultural tours in Japan that would be perfect!"

The system will automatically display tour details in cards - you focus on conversation!`

// ResolveSystemPrompt returns the prompt override stored at path, or the
// compiled-in default when path is empty.
func ResolveSystemPrompt(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}

// HistoryToMessages converts "User: "/"Assistant: " lines into role-tagged
// messages. Other lines are ignored.
func HistoryToMessages(history []string) []domain.ModelMessage {
	out := make([]domain.ModelMessage, 0, len(history))
	for _, line := range history {
		switch {
		case strings.HasPrefix(line, "User:"):
			out = append(out, domain.ModelMessage{
				Role:    domain.RoleUser,
				Content: strings.TrimSpace(strings.TrimPrefix(line, "User:")),
			})
		case strings.HasPrefix(line, "Assistant:"):
			out = append(out, domain.ModelMessage{
				Role:    domain.RoleAssistant,
				Content: strings.TrimSpace(strings.TrimPrefix(line, "Assistant:")),
			})
		}
	}
	return out
}
