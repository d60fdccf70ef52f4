package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRun_RecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	b := newTestBridge(&scriptedAgent{err: errors.New("boom")}, WithTracer(tp.Tracer("test")))
	stream, err := b.Run(context.Background(), userInput("t1"))
	require.NoError(t, err)
	_, _ = collectEvents(stream)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "agui.run", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "t1", attrs["agui.thread_id"].AsString())
	assert.Equal(t, "r1", attrs["agui.run_id"].AsString())
	assert.Equal(t, "test_agent", attrs["agui.agent"].AsString())
}
