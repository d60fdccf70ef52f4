package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientTools(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestFilter_NoClientToolsPassesThrough(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("c1", "confirm", "{}"),
		ToolResultFragment("c1", "true"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), nil))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFilter_DropsServerExecutedClientTool(t *testing.T) {
	in := []Fragment{
		TextFragment("m1", "checking"),
		ToolCallFragment("c1", "confirm", `{"q":"ok?"}`),
		ToolResultFragment("c1", `"yes"`),
		TextFragment("m2", "done"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, []Fragment{in[0], in[3]}, out)
}

func TestFilter_KeepsClientToolLeftForClient(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("c1", "confirm", `{"q":"ok?"}`),
		FinishFragment(),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFilter_ReleasesHeldCallAtEnd(t *testing.T) {
	in := []Fragment{ToolCallFragment("c1", "confirm", "{}")}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFilter_UndeclaredToolsAlwaysAppear(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("c1", "search", `{"q":"x"}`),
		ToolResultFragment("c1", "[]"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFilter_ParallelCallsKeepOrder(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("a", "confirm", "{}"),
		ToolCallFragment("b", "search", "{}"),
		ToolResultFragment("a", "1"),
		ToolResultFragment("b", "2"),
		TextFragment("m", "ok"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, []Fragment{in[1], in[3], in[4]}, out)
}

func TestFilter_MixedClientCallsOnlyExecutedOnesDropped(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("a", "confirm", "{}"),
		ToolCallFragment("b", "confirm", `{"second":true}`),
		ToolResultFragment("a", "1"),
		TextFragment("m", "waiting for you"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Equal(t, []Fragment{in[1], in[3]}, out)
}

func TestFilter_DuplicateResultsDropped(t *testing.T) {
	in := []Fragment{
		ToolCallFragment("a", "confirm", "{}"),
		ToolResultFragment("a", "1"),
		ToolResultFragment("a", "1"),
	}
	out, err := collectFragments(FilterClientToolCalls(context.Background(), fragmentsOf(in...), clientTools("confirm")))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilter_ErrorFlushesHeldCallsFirst(t *testing.T) {
	boom := errors.New("boom")
	held := ToolCallFragment("a", "confirm", "{}")
	out, err := collectFragments(FilterClientToolCalls(context.Background(), failingAfter(boom, held), clientTools("confirm")))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Fragment{held}, out)
}

func TestFilter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := collectFragments(FilterClientToolCalls(ctx, fragmentsOf(TextFragment("", "x")), clientTools("confirm")))
	assert.ErrorIs(t, err, context.Canceled)
}
