package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Options struct {
	BaseURL            string
	APIKey             string
	Model              string
	Temperature        float64
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(options Options) (*Client, error) {
	apiKey := strings.TrimSpace(options.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := strings.TrimSpace(options.Model)
	if model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: options.Temperature,
		httpClient:  httpClient,
		executor:    options.ResilienceExecutor,
	}, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string             `json:"type"`
	Function chatToolDefinition `json:"function"`
}

type chatToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelReply, error) {
	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    toWireMessages(req.Messages),
		Tools:       toWireTools(req.Tools),
		Temperature: c.temperature,
	}

	var response chatCompletionResponse
	call := func(callCtx context.Context) error {
		response = chatCompletionResponse{}
		return c.postJSON(callCtx, "/chat/completions", payload, &response, "chat completion")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.chat_completion", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.ModelReply{}, wrapTemporaryIfNeeded("openai chat completion", err)
	}
	if len(response.Choices) == 0 {
		return domain.ModelReply{}, fmt.Errorf("openai chat completion returned no choices")
	}

	wire := response.Choices[0].Message
	message := domain.ModelMessage{
		Role:    domain.RoleAssistant,
		Content: strings.TrimSpace(wire.Content),
	}
	for _, toolCall := range wire.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, domain.ModelToolCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: toolCall.Function.Arguments,
		})
	}

	model := response.Model
	if model == "" {
		model = c.model
	}
	return domain.ModelReply{
		Message:          message,
		Model:            model,
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
	}, nil
}

func toWireMessages(messages []domain.ModelMessage) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		wire := chatMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, chatToolCall{
				ID:       call.ID,
				Type:     "function",
				Function: chatFunction{Name: call.Name, Arguments: call.Arguments},
			})
		}
		out = append(out, wire)
	}
	return out
}

// toWireTools renders tool definitions as JSON-schema function declarations.
func toWireTools(tools []domain.ToolDefinition) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]any, len(tool.Parameters))
		required := make([]string, 0)
		for _, param := range tool.Parameters {
			properties[param.Name] = map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}
		out = append(out, chatTool{
			Type: "function",
			Function: chatToolDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return out
}
