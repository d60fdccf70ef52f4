package bridge

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"agui-bridge/internal/domain"
	"agui-bridge/internal/metrics"
	"agui-bridge/internal/session"
)

// Bridge turns AG-UI run requests into AG-UI event streams. It is the single
// source of truth for agent output to protocol conversion, shared by every
// transport.
type Bridge struct {
	agent   Agent
	store   session.Store
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithSessionStore enables session persistence. Without a store no session is
// ever resolved or saved.
func WithSessionStore(store session.Store) Option {
	return func(b *Bridge) { b.store = store }
}

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithMetrics sets the collectors runs are recorded to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bridge) { b.tracer = tracer }
}

// New creates a bridge for agent.
func New(agent Agent, opts ...Option) *Bridge {
	b := &Bridge{
		agent:  agent,
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer("agui-bridge/bridge"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// run holds everything resolved before the stream opens.
type run struct {
	input    *domain.RunAgentInput
	messages []*genai.Content
	opts     RunOptions
	sess     *session.Session
	threadID string
	runID    string
	log      logrus.FieldLogger
}

// Run validates the request and resolves its session, then returns the lazy
// event stream. Errors returned here happen before any event exists and are
// request-level: domain.ErrMalformedRequest or domain.ErrSessionLookup.
//
// Nothing runs until the stream is ranged over. The session is saved only
// when the consumer drains the stream.
func (b *Bridge) Run(ctx context.Context, input *domain.RunAgentInput) (iter.Seq2[events.Event, error], error) {
	messages, opts, err := Normalize(input)
	if err != nil {
		return nil, err
	}

	// Use IDs from input or generate new ones
	threadID := input.ThreadID
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	runID := input.RunID
	if runID == "" {
		runID = events.GenerateRunID()
		opts.Properties[PropRunID] = runID
	}

	sess, err := session.Resolve(ctx, b.store, b.agent.Name(), input.ThreadID)
	if b.store != nil && strings.TrimSpace(input.ThreadID) != "" {
		b.metrics.SessionOp("get", err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: thread %q: %w", domain.ErrSessionLookup, input.ThreadID, err)
	}
	if sess != nil {
		sess.MergeState(input.State)
	}

	r := &run{
		input:    input,
		messages: messages,
		opts:     opts,
		sess:     sess,
		threadID: threadID,
		runID:    runID,
		log:      b.log.WithFields(logrus.Fields{"thread_id": threadID, "run_id": runID}),
	}
	return b.instrument(ctx, r), nil
}

// pipeline wires driver, filter, completion wrapper and encoder.
func (b *Bridge) pipeline(ctx context.Context, r *run) iter.Seq2[events.Event, error] {
	var fragments iter.Seq2[Fragment, error]
	if len(r.input.Messages) == 0 {
		state := r.input.State
		if r.sess != nil {
			state = r.sess.Snapshot()
		}
		fragments = snapshotOnly(state)
	} else {
		fragments = Drive(ctx, b.agent, r.messages, r.sess, r.opts)
	}

	fragments = FilterClientToolCalls(ctx, fragments, r.opts.ClientToolNames())

	if r.sess != nil {
		fragments = OnExhausted(ctx, fragments, func(ctx context.Context) error {
			return b.persist(ctx, r)
		})
	}

	return Encode(ctx, fragments, r.threadID, r.runID)
}

func (b *Bridge) persist(ctx context.Context, r *run) error {
	r.sess.Runs++
	r.sess.UpdatedAt = b.now()
	err := b.store.Save(ctx, b.agent.Name(), r.input.ThreadID, r.sess)
	b.metrics.SessionOp("save", err)
	if err != nil {
		return fmt.Errorf("%w: thread %q: %w", domain.ErrPersistence, r.input.ThreadID, err)
	}
	r.log.Debug("session saved")
	return nil
}

// instrument opens the run span and records the outcome once the consumer is done.
func (b *Bridge) instrument(ctx context.Context, r *run) iter.Seq2[events.Event, error] {
	return func(yield func(events.Event, error) bool) {
		ctx, span := b.tracer.Start(ctx, "agui.run", trace.WithAttributes(
			attribute.String("agui.agent", b.agent.Name()),
			attribute.String("agui.thread_id", r.threadID),
			attribute.String("agui.run_id", r.runID),
			attribute.Int("agui.messages", len(r.input.Messages)),
			attribute.StringSlice("agui.client_tools", r.input.ToolNames()),
			attribute.Bool("agui.session", r.sess != nil),
		))
		defer span.End()

		start := b.now()
		outcome := metrics.OutcomeAbandoned
		b.metrics.RunStarted()
		r.log.Debug("run started")
		defer func() {
			b.metrics.RunCompleted(outcome, b.now().Sub(start))
			r.log.WithField("outcome", outcome).Debug("run completed")
		}()

		for ev, err := range b.pipeline(ctx, r) {
			switch {
			case err != nil && errors.Is(err, context.Canceled):
				outcome = metrics.OutcomeCancelled
				span.SetStatus(codes.Error, err.Error())
			case err != nil:
				outcome = metrics.OutcomeError
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case ev.Type() == events.EventTypeRunFinished:
				outcome = metrics.OutcomeFinished
			}
			if !yield(ev, err) {
				return
			}
		}
	}
}
