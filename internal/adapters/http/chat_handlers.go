package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const (
	userIDHeader       = "X-User-Id"
	maxChatBodyBytes   = 64 << 10
	maxChatMessageSize = 4000
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func userIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json", "success": false})
		return
	}
	if len([]rune(req.Message)) > maxChatMessageSize {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("message exceeds %d characters", maxChatMessageSize)))
		return
	}

	resp, err := rt.chat.Chat(r.Context(), domain.ChatRequest{
		UserID:         userIDFromRequest(r),
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) listConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := rt.chat.ListConversations(r.Context(), userIDFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []domain.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (rt *Router) getConversation(w http.ResponseWriter, r *http.Request) {
	detail, err := rt.chat.GetConversation(r.Context(), userIDFromRequest(r), r.PathValue("conversation_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (rt *Router) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := rt.chat.DeleteConversation(r.Context(), userIDFromRequest(r), r.PathValue("conversation_id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) messageRecommendedTours(w http.ResponseWriter, r *http.Request) {
	tours, err := rt.chat.MessageRecommendedTours(r.Context(), userIDFromRequest(r), r.PathValue("message_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours, "count": len(tours)})
}
