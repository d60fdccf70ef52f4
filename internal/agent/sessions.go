package agent

import (
	"context"
	"fmt"

	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// sessionManager keeps ADK sessions aligned with AG-UI threads. The session
// id is the thread id so a thread always reuses its ADK history.
type sessionManager struct {
	service session.Service
	appName string
	userID  string
}

func newSessionManager(service session.Service, appName, userID string) *sessionManager {
	if service == nil {
		service = session.InMemoryService()
	}
	return &sessionManager{service: service, appName: appName, userID: userID}
}

// ensure returns the ADK session for sessionID, creating it when missing.
// A new session is seeded with state and the prior conversation turns; an
// existing one receives state as a delta event.
func (m *sessionManager) ensure(ctx context.Context, sessionID string, state map[string]any, history []*genai.Content, author string) (session.Session, error) {
	getResp, err := m.service.Get(ctx, &session.GetRequest{
		AppName:   m.appName,
		UserID:    m.userID,
		SessionID: sessionID,
	})
	if err == nil && getResp != nil && getResp.Session != nil {
		sess := getResp.Session
		if len(state) > 0 {
			ev := session.NewEvent("agui-state")
			ev.Author = "user"
			ev.Actions.StateDelta = state
			if err := m.service.AppendEvent(ctx, sess, ev); err != nil {
				return nil, fmt.Errorf("failed to apply state to session: %w", err)
			}
		}
		return sess, nil
	}

	createResp, err := m.service.Create(ctx, &session.CreateRequest{
		AppName:   m.appName,
		UserID:    m.userID,
		SessionID: sessionID,
		State:     state,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess := createResp.Session

	for _, content := range history {
		ev := session.NewEvent("agui-history")
		ev.Author = "user"
		if content.Role == genai.RoleModel {
			ev.Author = author
		}
		ev.Content = content
		if err := m.service.AppendEvent(ctx, sess, ev); err != nil {
			return nil, fmt.Errorf("failed to seed session history: %w", err)
		}
	}
	return sess, nil
}
