package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/encoding/sse"
	"github.com/sirupsen/logrus"

	"agui-bridge/internal/domain"
	"agui-bridge/internal/metrics"
	"agui-bridge/internal/transport"
)

// Handler serves AG-UI runs as Server-Sent Events.
// Only responsible for HTTP/SSE serialization - protocol logic is in the bridge.
type Handler struct {
	runner  transport.Runner
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewHandler creates a new SSE handler. A positive timeout bounds every run.
func NewHandler(runner transport.Runner, log logrus.FieldLogger, m *metrics.Metrics, timeout time.Duration) *Handler {
	return &Handler{
		runner:  runner,
		log:     log.WithField("transport", "sse"),
		metrics: m,
		timeout: timeout,
	}
}

// eventSender writes events through the AG-UI SSE encoder. Headers are
// committed with the first event so errors raised before it can still
// change the status code.
type eventSender struct {
	ctx     context.Context
	w       http.ResponseWriter
	rc      *http.ResponseController
	buf     *bufio.Writer
	encoder *sse.SSEWriter
	started bool
}

func newEventSender(ctx context.Context, w http.ResponseWriter) *eventSender {
	return &eventSender{
		ctx:     ctx,
		w:       w,
		rc:      http.NewResponseController(w),
		buf:     bufio.NewWriter(w),
		encoder: sse.NewSSEWriter(),
	}
}

func (s *eventSender) SendEvent(ev events.Event) error {
	if !s.started {
		// Set headers for SSE
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if err := s.encoder.WriteEvent(s.ctx, s.buf, ev); err != nil {
		return fmt.Errorf("failed to write %s event: %w", ev.Type(), err)
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// ServeHTTP handles AG-UI protocol requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	input, err := decodeInput(r.Body)
	if err != nil {
		h.log.WithError(err).Warn("rejecting request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The deadline bounds the run only; events keep flowing to the client
	// until the terminal event is out.
	ctx := r.Context()
	runCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log := h.log.WithFields(logrus.Fields{"thread_id": input.ThreadID, "run_id": input.RunID})
	stream, err := h.runner.Run(runCtx, input)
	if err != nil {
		log.WithError(err).Warn("run rejected")
		http.Error(w, err.Error(), transport.HTTPStatus(err))
		return
	}

	sender := newEventSender(ctx, w)
	sent, err := transport.Pump(ctx, stream, sender, log, h.metrics)
	if err != nil && sent == 0 {
		log.WithError(err).Error("run failed before the stream opened")
		http.Error(w, err.Error(), transport.HTTPStatus(err))
	}
}

// decodeInput parses the request body. An absent body is malformed, which is
// different from a well-formed request without messages.
func decodeInput(body io.Reader) (*domain.RunAgentInput, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrMalformedRequest)
	}
	var input domain.RunAgentInput
	if err := json.NewDecoder(body).Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: request body is required", domain.ErrMalformedRequest)
		}
		return nil, fmt.Errorf("%w: invalid request body: %v", domain.ErrMalformedRequest, err)
	}
	return &input, nil
}
