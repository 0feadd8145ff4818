package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/ports"
)

var (
	ErrAgentIterationLimit    = errors.New("agent iteration limit reached")
	ErrMalformedToolArguments = errors.New("malformed tool arguments")
	ErrEmptyAgentAnswer       = errors.New("agent returned an empty answer")
)

type AgentOutcome struct {
	Answer           string
	Invocations      []domain.ToolInvocation
	Iterations       int
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ToolAgent drives a tool-calling model over the search tool set until it
// produces a final reply.
type ToolAgent struct {
	model       ports.ChatModel
	tools       *ToolSet
	definitions []domain.ToolDefinition
	prompt      string
	limits      domain.AgentLimits
}

func NewToolAgent(model ports.ChatModel, tools *ToolSet, systemPrompt string, limits domain.AgentLimits) (*ToolAgent, error) {
	if model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if tools == nil || len(tools.descriptors) == 0 {
		return nil, fmt.Errorf("tool set is empty")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("system prompt is empty")
	}
	if limits.MaxIterations <= 0 {
		limits.MaxIterations = 6
	}
	return &ToolAgent{
		model:       model,
		tools:       tools,
		definitions: tools.Definitions(),
		prompt:      systemPrompt,
		limits:      limits,
	}, nil
}

// Run executes tool calls sequentially in the order the model requests them.
// The returned outcome carries the invocations made so far even on error.
func (a *ToolAgent) Run(ctx context.Context, history []domain.ModelMessage, input string) (*AgentOutcome, error) {
	messages := make([]domain.ModelMessage, 0, len(history)+2)
	messages = append(messages, domain.ModelMessage{Role: domain.RoleSystem, Content: a.prompt})
	messages = append(messages, history...)
	messages = append(messages, domain.ModelMessage{Role: domain.RoleUser, Content: input})

	outcome := &AgentOutcome{}
	for i := 1; i <= a.limits.MaxIterations; i++ {
		outcome.Iterations = i
		reply, err := a.model.Complete(ctx, domain.ModelRequest{
			Messages: messages,
			Tools:    a.definitions,
		})
		if err != nil {
			return outcome, fmt.Errorf("agent completion: %w", err)
		}
		outcome.Model = reply.Model
		outcome.PromptTokens += reply.PromptTokens
		outcome.CompletionTokens += reply.CompletionTokens

		if len(reply.Message.ToolCalls) == 0 {
			answer := strings.TrimSpace(reply.Message.Content)
			if answer == "" {
				return outcome, ErrEmptyAgentAnswer
			}
			outcome.Answer = answer
			return outcome, nil
		}

		messages = append(messages, domain.ModelMessage{
			Role:      domain.RoleAssistant,
			Content:   reply.Message.Content,
			ToolCalls: reply.Message.ToolCalls,
		})
		for _, call := range reply.Message.ToolCalls {
			args, err := decodeToolArguments(call.Arguments)
			if err != nil {
				return outcome, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			result, err := a.tools.Invoke(ctx, call.Name, args)
			if err != nil {
				return outcome, err
			}
			outcome.Invocations = append(outcome.Invocations, domain.ToolInvocation{
				Tool:         call.Name,
				Arguments:    args,
				Tours:        result.Tours,
				Destinations: result.Destinations,
			})
			messages = append(messages, domain.ModelMessage{
				Role:       domain.RoleTool,
				Content:    result.JSON(),
				ToolCallID: call.ID,
			})
		}
	}
	return outcome, ErrAgentIterationLimit
}

func decodeToolArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToolArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func isAgentTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
