package bridge

// FragmentKind tags one incremental unit of agent output.
type FragmentKind int

const (
	// FragmentText is a text delta of an assistant message.
	FragmentText FragmentKind = iota
	// FragmentToolCall is a complete tool invocation with JSON arguments.
	FragmentToolCall
	// FragmentToolResult is the outcome of a server-executed tool call.
	FragmentToolResult
	// FragmentState carries the agent state after a delta was applied.
	FragmentState
	// FragmentFinish marks the end of one model turn.
	FragmentFinish
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentText:
		return "text"
	case FragmentToolCall:
		return "tool_call"
	case FragmentToolResult:
		return "tool_result"
	case FragmentState:
		return "state"
	case FragmentFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Fragment is one unit of agent output before protocol encoding.
// Only the fields relevant to Kind are set.
type Fragment struct {
	Kind FragmentKind

	// MessageID groups text deltas. Empty means "continue the current message".
	MessageID string
	Text      string

	ToolCallID string
	ToolName   string
	Args       string
	Result     string

	State map[string]any
}

// TextFragment builds a text delta.
func TextFragment(messageID, text string) Fragment {
	return Fragment{Kind: FragmentText, MessageID: messageID, Text: text}
}

// ToolCallFragment builds a tool invocation.
func ToolCallFragment(id, name, args string) Fragment {
	return Fragment{Kind: FragmentToolCall, ToolCallID: id, ToolName: name, Args: args}
}

// ToolResultFragment builds a tool result for a previous call.
func ToolResultFragment(callID, result string) Fragment {
	return Fragment{Kind: FragmentToolResult, ToolCallID: callID, Result: result}
}

// StateFragment builds a state snapshot.
func StateFragment(state map[string]any) Fragment {
	return Fragment{Kind: FragmentState, State: state}
}

// FinishFragment marks a turn boundary.
func FinishFragment() Fragment {
	return Fragment{Kind: FragmentFinish}
}
