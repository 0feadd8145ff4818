package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/resilience"
)

func TestNewRequiresKeyAndModel(t *testing.T) {
	if _, err := New(Options{Model: "gpt-4o-mini"}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := New(Options{APIKey: "sk-test"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
	client, err := New(Options{APIKey: "sk-test", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.baseURL != defaultBaseURL {
		t.Fatalf("expected default base url, got %q", client.baseURL)
	}
}

func TestCompleteSendsToolsAndParsesToolCalls(t *testing.T) {
	var captured map[string]any
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini-2024",
			"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "search_tours_by_destination", "arguments": "{\"destination\":\"Japan\"}"}}
			]}, "finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 14}
		}`))
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL + "/v1/", APIKey: "sk-test", Model: "gpt-4o-mini", Temperature: 0.7})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	reply, err := client.Complete(context.Background(), domain.ModelRequest{
		Messages: []domain.ModelMessage{
			{Role: domain.RoleSystem, Content: "You are TourAI"},
			{Role: domain.RoleUser, Content: "Japan"},
		},
		Tools: []domain.ToolDefinition{{
			Name:        "search_tours_by_destination",
			Description: "Search tours by destination",
			Parameters: []domain.ToolParameter{
				{Name: "destination", Type: "string", Description: "Destination", Required: true},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if authHeader != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", authHeader)
	}
	if captured["model"] != "gpt-4o-mini" || captured["temperature"] != 0.7 {
		t.Fatalf("unexpected payload %v", captured)
	}
	tools, _ := captured["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %v", captured["tools"])
	}
	function := tools[0].(map[string]any)["function"].(map[string]any)
	params := function["parameters"].(map[string]any)
	required := params["required"].([]any)
	if params["type"] != "object" || len(required) != 1 || required[0] != "destination" {
		t.Fatalf("unexpected tool schema %v", params)
	}

	if len(reply.Message.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", reply.Message)
	}
	call := reply.Message.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "search_tours_by_destination" || call.Arguments != `{"destination":"Japan"}` {
		t.Fatalf("unexpected tool call %+v", call)
	}
	if reply.Model != "gpt-4o-mini-2024" || reply.PromptTokens != 120 || reply.CompletionTokens != 14 {
		t.Fatalf("unexpected reply metadata %+v", reply)
	}
}

func TestCompleteEchoesToolResultsInWireFormat(t *testing.T) {
	var captured struct {
		Messages []chatMessage `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Enjoy Japan!  "}}]}`))
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk-test", Model: "m"})
	reply, err := client.Complete(context.Background(), domain.ModelRequest{Messages: []domain.ModelMessage{
		{Role: domain.RoleAssistant, ToolCalls: []domain.ModelToolCall{{ID: "c1", Name: "t", Arguments: "{}"}}},
		{Role: domain.RoleTool, ToolCallID: "c1", Content: `{"tours":[]}`},
	}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply.Message.Content != "Enjoy Japan!" || reply.Model != "m" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].ToolCalls[0].Type != "function" || captured.Messages[1].ToolCallID != "c1" {
		t.Fatalf("unexpected wire messages %+v", captured.Messages)
	}
}

func TestCompleteIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk-bad", Model: "m"})
	_, err := client.Complete(context.Background(), domain.ModelRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("auth failures are not temporary")
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	})
	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk", Model: "m", ResilienceExecutor: exec})
	reply, err := client.Complete(context.Background(), domain.ModelRequest{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply.Message.Content != "ok" || atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("expected success on third attempt, got %q after %d", reply.Message.Content, attempts)
	}
}

func TestCompleteWrapsExhaustedRetriesAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk", Model: "m"})
	_, err := client.Complete(context.Background(), domain.ModelRequest{})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk", Model: "m"})
	if _, err := client.Complete(context.Background(), domain.ModelRequest{}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestStatusErrorCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL, APIKey: "sk", Model: "m"})
	_, err := client.Complete(context.Background(), domain.ModelRequest{})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.RetryAfter() != 7*time.Second {
		t.Fatalf("expected 7s retry hint, got %v", statusErr.RetryAfter())
	}
}
