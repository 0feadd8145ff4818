package domain

type ModelRole string

const (
	RoleSystem    ModelRole = "system"
	RoleUser      ModelRole = "user"
	RoleAssistant ModelRole = "assistant"
	RoleTool      ModelRole = "tool"
)

type ModelToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ModelMessage struct {
	Role       ModelRole       `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []ModelToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

type ModelRequest struct {
	Messages []ModelMessage   `json:"messages"`
	Tools    []ToolDefinition `json:"tools"`
}

type ModelReply struct {
	Message          ModelMessage `json:"message"`
	Model            string       `json:"model"`
	PromptTokens     int          `json:"prompt_tokens"`
	CompletionTokens int          `json:"completion_tokens"`
}

type AgentLimits struct {
	MaxIterations int `json:"max_iterations"`
}
