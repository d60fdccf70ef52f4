package domain

import "strings"

// Message roles accepted on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleTool      = "tool"
)

// RunAgentInput represents the AG-UI protocol input format
type RunAgentInput struct {
	ThreadID       string         `json:"threadId"`
	RunID          string         `json:"runId"`
	State          map[string]any `json:"state,omitempty"`
	Messages       []Message      `json:"messages"`
	Tools          []Tool         `json:"tools,omitempty"`
	Context        []ContextItem  `json:"context,omitempty"`
	ForwardedProps any            `json:"forwardedProps,omitempty"`
}

// Message is one role-tagged conversation item.
//
// Content is either a string or an array of parts ({"type":"text","text":...}),
// which is why it stays untyped until Text is called.
type Message struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolCall is an assistant request to invoke a tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a client-declared tool the frontend executes itself.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ContextItem is a description/value annotation attached to a run.
type ContextItem struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Text flattens the message content into plain text. Non-text parts are skipped.
func (m Message) Text() string {
	switch content := m.Content.(type) {
	case string:
		return content
	case []any:
		var b strings.Builder
		for _, raw := range content {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if kind, _ := part["type"].(string); kind != "" && kind != "text" {
				continue
			}
			if text, ok := part["text"].(string); ok {
				b.WriteString(text)
			}
		}
		return b.String()
	default:
		return ""
	}
}

// ToolNames returns the names of the client-declared tools.
func (in *RunAgentInput) ToolNames() []string {
	if in == nil || len(in.Tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(in.Tools))
	for _, tool := range in.Tools {
		if tool.Name != "" {
			names = append(names, tool.Name)
		}
	}
	return names
}
