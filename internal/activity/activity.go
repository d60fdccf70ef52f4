// Package activity maps chat activities from third-party bot channels onto
// AG-UI messages.
package activity

import (
	"encoding/json"
	"iter"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/sirupsen/logrus"

	"agui-bridge/internal/domain"
)

// Activity types understood by ToMessages.
const (
	TypeMessage = "message"
	TypeTyping  = "typing"
)

// SuggestedActionsTool names the synthetic tool call carrying suggested actions.
const SuggestedActionsTool = "suggested_actions"

// Activity is one inbound channel activity.
type Activity struct {
	ID               string            `json:"id,omitempty"`
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	SuggestedActions *SuggestedActions `json:"suggestedActions,omitempty"`
}

// SuggestedActions are quick replies offered alongside an activity.
type SuggestedActions struct {
	To      []string     `json:"to,omitempty"`
	Actions []CardAction `json:"actions"`
}

// CardAction is one clickable action.
type CardAction struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"`
	Title        string `json:"title,omitempty"`
	Value        any    `json:"value,omitempty"`
	Text         string `json:"text,omitempty"`
	Image        string `json:"image,omitempty"`
	ImageAltText string `json:"imageAltText,omitempty"`
	DisplayText  string `json:"displayText,omitempty"`
	ChannelData  any    `json:"channelData,omitempty"`
}

// suggestedActionsArgs is the argument payload of the synthetic tool call.
type suggestedActionsArgs struct {
	ActivityID string       `json:"activityId"`
	Prompt     string       `json:"prompt"`
	Actions    []CardAction `json:"actions"`
}

// ToMessages converts activities to assistant messages. Activities without
// text are skipped. "message" activities always produce a message; "typing"
// activities only when streaming is enabled. Anything else is logged and
// dropped. An activity with suggested actions is followed by a tool-call
// message encoding those actions.
func ToMessages(activities iter.Seq[Activity], streaming bool, log logrus.FieldLogger) iter.Seq[domain.Message] {
	return func(yield func(domain.Message) bool) {
		for act := range activities {
			if act.Text == "" {
				continue
			}
			if act.Type != TypeMessage && !(act.Type == TypeTyping && streaming) {
				log.WithFields(logrus.Fields{
					"activity_id":   act.ID,
					"activity_type": act.Type,
				}).Warn("dropping unsupported activity")
				continue
			}

			if !yield(domain.Message{
				ID:      messageID(act.ID),
				Role:    domain.RoleAssistant,
				Content: act.Text,
			}) {
				return
			}

			if act.SuggestedActions == nil || len(act.SuggestedActions.Actions) == 0 {
				continue
			}
			msg, err := suggestedActionsMessage(act)
			if err != nil {
				log.WithError(err).WithField("activity_id", act.ID).Warn("dropping suggested actions")
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

func suggestedActionsMessage(act Activity) (domain.Message, error) {
	args, err := json.Marshal(suggestedActionsArgs{
		ActivityID: act.ID,
		Prompt:     act.Text,
		Actions:    act.SuggestedActions.Actions,
	})
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   events.GenerateMessageID(),
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{{
			ID:   events.GenerateToolCallID(),
			Type: "function",
			Function: domain.FunctionCall{
				Name:      SuggestedActionsTool,
				Arguments: string(args),
			},
		}},
	}, nil
}

func messageID(activityID string) string {
	if activityID != "" {
		return activityID
	}
	return events.GenerateMessageID()
}
