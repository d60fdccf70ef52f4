package activity

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"

	"agui-bridge/internal/domain"
)

// Request is the body accepted by Handler.
type Request struct {
	Activities []Activity `json:"activities"`
	Streaming  bool       `json:"streaming,omitempty"`
}

// Response carries the mapped messages, ready to be sent as the messages of
// a run request.
type Response struct {
	Messages []domain.Message `json:"messages"`
}

// Handler maps posted channel activities to AG-UI messages.
type Handler struct {
	log logrus.FieldLogger
}

// NewHandler creates a new activity mapping handler.
func NewHandler(log logrus.FieldLogger) *Handler {
	return &Handler{log: log.WithField("component", "activity")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.WithError(err).Warn("rejecting activities")
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := Response{Messages: slices.Collect(ToMessages(slices.Values(req.Activities), req.Streaming, h.log))}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.WithError(err).Debug("failed to write activity response")
	}
}
