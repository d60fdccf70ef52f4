package domain

import "fmt"

var validRoles = map[string]bool{
	RoleUser:      true,
	RoleAssistant: true,
	RoleSystem:    true,
	RoleDeveloper: true,
	RoleTool:      true,
}

// Validate checks the input before any protocol work starts.
// A nil input is malformed; an input without messages is not.
func (in *RunAgentInput) Validate() error {
	if in == nil {
		return fmt.Errorf("%w: request body is required", ErrMalformedRequest)
	}
	if err := ValidateMessages(in.Messages); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	for i, tool := range in.Tools {
		if tool.Name == "" {
			return fmt.Errorf("%w: tool at index %d missing required field 'name'", ErrMalformedRequest, i)
		}
	}
	return nil
}

// ValidateMessages validates that messages have the required structure
// This is shared across all transport handlers
func ValidateMessages(messages []Message) error {
	for i, msg := range messages {
		if msg.ID == "" {
			return fmt.Errorf("message at index %d missing required field 'id'", i)
		}

		if msg.Role == "" {
			return fmt.Errorf("message at index %d missing required field 'role'", i)
		}

		if !validRoles[msg.Role] {
			return fmt.Errorf("message at index %d has invalid 'role' value: %s", i, msg.Role)
		}

		if msg.Role == RoleTool && msg.ToolCallID == "" {
			return fmt.Errorf("message at index %d missing required field 'toolCallId' for role 'tool'", i)
		}

		// Assistant messages may carry only tool calls.
		if msg.Role == RoleUser || (msg.Role == RoleAssistant && len(msg.ToolCalls) == 0) {
			if msg.Content == nil {
				return fmt.Errorf("message at index %d missing required field 'content' for role '%s'", i, msg.Role)
			}
		}

		if msg.Content != nil {
			if _, ok := msg.Content.(string); !ok {
				if _, ok := msg.Content.([]any); !ok {
					return fmt.Errorf("message at index %d has invalid 'content' type (expected string or array)", i)
				}
			}
		}
	}

	return nil
}
