package domain

import "time"

type MessageSender string

const (
	SenderUser MessageSender = "user"
	SenderAI   MessageSender = "ai"
)

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID                 string        `json:"id"`
	ConversationID     string        `json:"conversation_id"`
	Sender             MessageSender `json:"sender"`
	Content            string        `json:"content"`
	RecommendedTourIDs []int64       `json:"recommended_tour_ids,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// HistoryLine renders the message the way it is fed back as context.
func (m ChatMessage) HistoryLine() string {
	if m.Sender == SenderUser {
		return "User: " + m.Content
	}
	return "Assistant: " + m.Content
}

type ConversationSummary struct {
	Conversation
	MessageCount int `json:"message_count"`
}

type ConversationDetail struct {
	Conversation
	Messages []ChatMessage `json:"messages"`
}

type ChatRequest struct {
	UserID         string `json:"-"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	Response          string         `json:"response"`
	RecommendedTours  []FullTourView `json:"recommended_tours"`
	Success           bool           `json:"success"`
	ConversationID    string         `json:"conversation_id,omitempty"`
	ConversationTitle string         `json:"conversation_title,omitempty"`
}
