package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/sirupsen/logrus"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"agui-bridge/internal/bridge"
	"agui-bridge/internal/session"
)

// Default identity used for ADK sessions when none is configured.
const (
	DefaultAppName = "agent-go-ag-ui"
	DefaultUserID  = "demo_user"
)

var errNoInput = errors.New("agent: conversation does not end with user or tool input")

// Config configures an ADKAgent.
type Config struct {
	AppName string
	UserID  string
	// SessionService holds ADK conversation history. Defaults to an in-memory service.
	SessionService adksession.Service
	Logger         logrus.FieldLogger
}

// ADKAgent drives a Google ADK agent through a runner and reports its output
// as bridge fragments.
type ADKAgent struct {
	agent    adkagent.Agent
	runner   *runner.Runner
	sessions *sessionManager
	userID   string
	log      logrus.FieldLogger
}

var _ bridge.Agent = (*ADKAgent)(nil)

// NewADKAgent wraps a with an ADK runner.
func NewADKAgent(a adkagent.Agent, cfg Config) (*ADKAgent, error) {
	if a == nil {
		return nil, errors.New("agent: nil ADK agent")
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.UserID == "" {
		cfg.UserID = DefaultUserID
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	sessions := newSessionManager(cfg.SessionService, cfg.AppName, cfg.UserID)
	r, err := runner.New(runner.Config{
		AppName:        cfg.AppName,
		Agent:          a,
		SessionService: sessions.service,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &ADKAgent{
		agent:    a,
		runner:   r,
		sessions: sessions,
		userID:   cfg.UserID,
		log:      cfg.Logger.WithField("component", "adk"),
	}, nil
}

// Name returns the wrapped agent's name.
func (a *ADKAgent) Name() string {
	return a.agent.Name()
}

// RunStreaming starts one ADK run for the latest conversation turn. Earlier
// turns seed the ADK session the first time a thread is seen; afterwards the
// session keeps its own history.
func (a *ADKAgent) RunStreaming(ctx context.Context, messages []*genai.Content, sess *session.Session, opts bridge.RunOptions) iter.Seq2[bridge.Fragment, error] {
	return func(yield func(bridge.Fragment, error) bool) {
		history, input := splitTurn(messages)
		if input == nil {
			yield(bridge.Fragment{}, errNoInput)
			return
		}
		if preamble := runPreamble(opts); preamble != "" {
			input.Parts = append([]*genai.Part{genai.NewPartFromText(preamble)}, input.Parts...)
		}

		sessionID := sessionIDFor(sess, opts)
		state := opts.Properties.State()
		if sess != nil {
			state = sess.Snapshot()
		}

		if _, err := a.sessions.ensure(ctx, sessionID, state, history, a.agent.Name()); err != nil {
			yield(bridge.Fragment{}, err)
			return
		}

		a.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"parts":      len(input.Parts),
		}).Debug("starting ADK run")

		t := newTranslator(sess, state)
		adkEvents := a.runner.Run(ctx, a.userID, sessionID, input, adkagent.RunConfig{
			StreamingMode: adkagent.StreamingModeSSE,
		})
		for fragment, err := range t.translate(adkEvents) {
			if !yield(fragment, err) {
				return
			}
		}
	}
}

// splitTurn separates the latest turn, everything after the last model
// message, from the history before it. The latest turn is merged into one
// user content.
func splitTurn(messages []*genai.Content) ([]*genai.Content, *genai.Content) {
	last := -1
	for i, msg := range messages {
		if msg != nil && msg.Role == genai.RoleModel {
			last = i
		}
	}

	var parts []*genai.Part
	for _, msg := range messages[last+1:] {
		if msg != nil {
			parts = append(parts, msg.Parts...)
		}
	}
	if len(parts) == 0 {
		return messages, nil
	}
	return messages[:last+1], genai.NewContentFromParts(parts, genai.RoleUser)
}

// runPreamble renders per-run instructions and context annotations, which the
// ADK agent cannot take as configuration, as a leading text part.
func runPreamble(opts bridge.RunOptions) string {
	var b strings.Builder
	if opts.Instructions != "" {
		b.WriteString(opts.Instructions)
	}
	if items := opts.Properties.Context(); len(items) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Context:")
		for _, item := range items {
			fmt.Fprintf(&b, "\n- %s: %s", item.Description, item.Value)
		}
	}
	return b.String()
}

func sessionIDFor(sess *session.Session, opts bridge.RunOptions) string {
	if sess != nil && sess.ThreadID != "" {
		return sess.ThreadID
	}
	if id := strings.TrimSpace(opts.Properties.String(bridge.PropThreadID)); id != "" {
		return id
	}
	if id := opts.Properties.String(bridge.PropRunID); id != "" {
		return id
	}
	return events.GenerateThreadID()
}
