package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (id, user_id, title, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, conv.ID, conv.UserID, conv.Title, conv.IsActive, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, is_active, created_at, updated_at
FROM conversations
WHERE id = $1 AND user_id = $2 AND is_active
`, conversationID, userID)

	var conv domain.Conversation
	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.IsActive, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrConversationNotFound, "get conversation", fmt.Errorf("id=%s", conversationID))
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.user_id, c.title, c.is_active, c.created_at, c.updated_at, COUNT(m.id)
FROM conversations c
LEFT JOIN chat_messages m ON m.conversation_id = c.id
WHERE c.user_id = $1 AND c.is_active
GROUP BY c.id
ORDER BY c.updated_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationSummary, 0)
	for rows.Next() {
		var item domain.ConversationSummary
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Title,
			&item.IsActive,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

// DeleteConversation hides the conversation; its messages are kept.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE conversations
SET is_active = FALSE, updated_at = $3
WHERE user_id = $1 AND id = $2 AND is_active
`, userID, conversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrConversationNotFound, "delete conversation", fmt.Errorf("id=%s", conversationID))
	}
	return nil
}

func (r *ConversationRepository) SetTitle(ctx context.Context, conversationID, title string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE conversations
SET title = $2, updated_at = $3
WHERE id = $1
`, conversationID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set conversation title: %w", err)
	}
	return nil
}

// AppendMessage stores the message and bumps the conversation's updated_at.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg domain.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	tourIDs := msg.RecommendedTourIDs
	if tourIDs == nil {
		tourIDs = []int64{}
	}
	tourIDsJSON, err := json.Marshal(tourIDs)
	if err != nil {
		return fmt.Errorf("marshal recommended tour ids: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO chat_messages (id, conversation_id, sender, content, recommended_tour_ids, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, msg.ID, msg.ConversationID, string(msg.Sender), msg.Content, tourIDsJSON, msg.CreatedAt); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE conversations SET updated_at = $2 WHERE id = $1
`, msg.ConversationID, msg.CreatedAt); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append message tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, conversation_id, sender, content, recommended_tour_ids, created_at
FROM chat_messages
WHERE conversation_id = $1
ORDER BY created_at DESC, seq DESC
LIMIT $2
`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out, err := scanMessages(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, conversation_id, sender, content, recommended_tour_ids, created_at
FROM chat_messages
WHERE conversation_id = $1
ORDER BY created_at ASC, seq ASC
`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out, err := scanMessages(rows, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM chat_messages WHERE conversation_id = $1
`, conversationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// GetMessage finds a message in any active conversation owned by the user.
func (r *ConversationRepository) GetMessage(ctx context.Context, userID, messageID string) (*domain.ChatMessage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT m.id, m.conversation_id, m.sender, m.content, m.recommended_tour_ids, m.created_at
FROM chat_messages m
JOIN conversations c ON c.id = m.conversation_id
WHERE m.id = $1 AND c.user_id = $2 AND c.is_active
`, messageID, userID)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrMessageNotFound, "get message", fmt.Errorf("id=%s", messageID))
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

func scanMessages(rows *sql.Rows, capacity int) ([]domain.ChatMessage, error) {
	out := make([]domain.ChatMessage, 0, capacity)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func scanMessage(row rowScanner) (domain.ChatMessage, error) {
	var (
		msg     domain.ChatMessage
		sender  string
		tourIDs []byte
	)
	if err := row.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &tourIDs, &msg.CreatedAt); err != nil {
		return domain.ChatMessage{}, err
	}
	msg.Sender = domain.MessageSender(sender)
	if len(tourIDs) > 0 {
		if err := json.Unmarshal(tourIDs, &msg.RecommendedTourIDs); err != nil {
			return domain.ChatMessage{}, fmt.Errorf("decode recommended tour ids: %w", err)
		}
	}
	if len(msg.RecommendedTourIDs) == 0 {
		msg.RecommendedTourIDs = nil
	}
	return msg, nil
}
