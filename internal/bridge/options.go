package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"agui-bridge/internal/domain"
)

// PropertyKey names a side-channel entry. Keys live in the "agui." namespace so
// they never collide with agent-native option fields.
type PropertyKey string

const (
	PropState          PropertyKey = "agui.state"
	PropContext        PropertyKey = "agui.context"
	PropForwardedProps PropertyKey = "agui.forwarded_props"
	PropThreadID       PropertyKey = "agui.thread_id"
	PropRunID          PropertyKey = "agui.run_id"
)

// Properties is the side-channel bag attached to RunOptions. Missing and nil
// entries both mean "no value".
type Properties map[PropertyKey]any

// Lookup reports the value for key, treating nil values as absent.
func (p Properties) Lookup(key PropertyKey) (any, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the string value for key or "".
func (p Properties) String(key PropertyKey) string {
	v, _ := p.Lookup(key)
	s, _ := v.(string)
	return s
}

// State returns the state blob for the run, if any.
func (p Properties) State() map[string]any {
	v, _ := p.Lookup(PropState)
	state, _ := v.(map[string]any)
	return state
}

// Context returns the context annotations for the run, if any.
func (p Properties) Context() []domain.ContextItem {
	v, _ := p.Lookup(PropContext)
	items, _ := v.([]domain.ContextItem)
	return items
}

// RunOptions are the agent-native invocation options for one run.
type RunOptions struct {
	// Instructions collects system and developer messages.
	Instructions string
	// Tools are the client-declared tools the frontend executes itself.
	Tools      []*genai.FunctionDeclaration
	Properties Properties
}

// ClientToolNames returns the set of client-declared tool names.
func (o RunOptions) ClientToolNames() map[string]struct{} {
	names := make(map[string]struct{}, len(o.Tools))
	for _, tool := range o.Tools {
		if tool != nil && tool.Name != "" {
			names[tool.Name] = struct{}{}
		}
	}
	return names
}

// Normalize converts a run request into native messages and run options.
func Normalize(input *domain.RunAgentInput) ([]*genai.Content, RunOptions, error) {
	if err := input.Validate(); err != nil {
		return nil, RunOptions{}, err
	}

	messages, instructions, err := convertMessages(input.Messages)
	if err != nil {
		return nil, RunOptions{}, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}

	tools := make([]*genai.FunctionDeclaration, 0, len(input.Tools))
	for _, tool := range input.Tools {
		tools = append(tools, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: tool.Parameters,
		})
	}

	// Every key is packed, even when the request left it empty.
	props := Properties{
		PropState:          nilIfEmptyMap(input.State),
		PropContext:        nilIfEmptyContext(input.Context),
		PropForwardedProps: input.ForwardedProps,
		PropThreadID:       input.ThreadID,
		PropRunID:          input.RunID,
	}

	return messages, RunOptions{
		Instructions: instructions,
		Tools:        tools,
		Properties:   props,
	}, nil
}

func convertMessages(msgs []domain.Message) ([]*genai.Content, string, error) {
	var (
		contents     []*genai.Content
		instructions []string
		toolNames    = make(map[string]string)
	)

	for i, msg := range msgs {
		switch msg.Role {
		case domain.RoleSystem, domain.RoleDeveloper:
			if text := msg.Text(); text != "" {
				instructions = append(instructions, text)
			}

		case domain.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleUser))

		case domain.RoleAssistant:
			var parts []*genai.Part
			if text := msg.Text(); text != "" {
				parts = append(parts, genai.NewPartFromText(text))
			}
			for _, call := range msg.ToolCalls {
				args, err := decodeArguments(call.Function.Arguments)
				if err != nil {
					return nil, "", fmt.Errorf("message at index %d tool call %q: %w", i, call.ID, err)
				}
				part := genai.NewPartFromFunctionCall(call.Function.Name, args)
				part.FunctionCall.ID = call.ID
				parts = append(parts, part)
				toolNames[call.ID] = call.Function.Name
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case domain.RoleTool:
			part := genai.NewPartFromFunctionResponse(toolNames[msg.ToolCallID], decodeResult(msg.Text()))
			part.FunctionResponse.ID = msg.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}

	return contents, strings.Join(instructions, "\n\n"), nil
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return args, nil
}

// decodeResult keeps JSON object results as-is and wraps anything else.
func decodeResult(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": content}
}

func nilIfEmptyMap(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nilIfEmptyContext(items []domain.ContextItem) any {
	if len(items) == 0 {
		return nil
	}
	return items
}
