package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"agui-bridge/internal/domain"
)

func TestNormalize_NilInput(t *testing.T) {
	_, _, err := Normalize(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)
}

func TestNormalize_EmptyInputIsValid(t *testing.T) {
	msgs, opts, err := Normalize(&domain.RunAgentInput{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, opts.Tools)

	// Every side-channel key is present even when the request left it out.
	for _, key := range []PropertyKey{PropState, PropContext, PropForwardedProps, PropThreadID, PropRunID} {
		_, present := opts.Properties[key]
		assert.True(t, present, "missing %s", key)
	}
	_, ok := opts.Properties.Lookup(PropState)
	assert.False(t, ok)
	assert.Nil(t, opts.Properties.State())
	assert.Nil(t, opts.Properties.Context())
	assert.Empty(t, opts.Properties.String(PropThreadID))
}

func TestNormalize_SideChannel(t *testing.T) {
	input := &domain.RunAgentInput{
		ThreadID:       "t1",
		RunID:          "r1",
		State:          map[string]any{"theme": "dark"},
		Context:        []domain.ContextItem{{Description: "user tz", Value: "UTC"}},
		ForwardedProps: map[string]any{"trace": "abc"},
		Messages:       []domain.Message{{ID: "1", Role: domain.RoleUser, Content: "hi"}},
	}
	_, opts, err := Normalize(input)
	require.NoError(t, err)

	assert.Equal(t, "t1", opts.Properties.String(PropThreadID))
	assert.Equal(t, "r1", opts.Properties.String(PropRunID))
	assert.Equal(t, map[string]any{"theme": "dark"}, opts.Properties.State())
	assert.Equal(t, []domain.ContextItem{{Description: "user tz", Value: "UTC"}}, opts.Properties.Context())
	fwd, ok := opts.Properties.Lookup(PropForwardedProps)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"trace": "abc"}, fwd)
}

func TestNormalize_Messages(t *testing.T) {
	input := &domain.RunAgentInput{
		Messages: []domain.Message{
			{ID: "0", Role: domain.RoleSystem, Content: "Be brief."},
			{ID: "1", Role: domain.RoleUser, Content: "weather in Paris?"},
			{ID: "2", Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{
				ID: "call-1", Type: "function",
				Function: domain.FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`},
			}}},
			{ID: "3", Role: domain.RoleTool, ToolCallID: "call-1", Content: `{"temp":21}`},
			{ID: "4", Role: domain.RoleTool, ToolCallID: "call-1", Content: "plain text"},
		},
	}

	msgs, opts, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", opts.Instructions)
	require.Len(t, msgs, 4)

	assert.Equal(t, genai.RoleUser, msgs[0].Role)
	assert.Equal(t, "weather in Paris?", msgs[0].Parts[0].Text)

	assert.Equal(t, genai.RoleModel, msgs[1].Role)
	call := msgs[1].Parts[0].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "call-1", call.ID)
	assert.Equal(t, "get_weather", call.Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, call.Args)

	resp := msgs[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, "get_weather", resp.Name)
	assert.Equal(t, map[string]any{"temp": 21.0}, resp.Response)

	assert.Equal(t, map[string]any{"result": "plain text"}, msgs[3].Parts[0].FunctionResponse.Response)
}

func TestNormalize_BadToolArguments(t *testing.T) {
	input := &domain.RunAgentInput{
		Messages: []domain.Message{{ID: "1", Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{
			ID: "c", Function: domain.FunctionCall{Name: "x", Arguments: "not json"},
		}}}},
	}
	_, _, err := Normalize(input)
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)
}

func TestNormalize_Tools(t *testing.T) {
	schema := map[string]any{"type": "object"}
	input := &domain.RunAgentInput{Tools: []domain.Tool{{Name: "confirm", Description: "ask the user", Parameters: schema}}}

	_, opts, err := Normalize(input)
	require.NoError(t, err)
	require.Len(t, opts.Tools, 1)
	assert.Equal(t, "confirm", opts.Tools[0].Name)
	assert.Equal(t, "ask the user", opts.Tools[0].Description)
	assert.Equal(t, schema, opts.Tools[0].ParametersJsonSchema)
	assert.Equal(t, map[string]struct{}{"confirm": {}}, opts.ClientToolNames())
}
