package connectrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"agui-bridge/internal/domain"
	"agui-bridge/internal/metrics"
	"agui-bridge/internal/transport"
)

// RunAgentProcedure is the fully-qualified procedure served by Handler.
// Requests and events travel as google.protobuf.Struct values carrying the
// AG-UI JSON shapes.
const RunAgentProcedure = "/agui.v1.AGUIService/RunAgent"

// Handler handles Connect RPC requests for the AG-UI protocol
// Only responsible for Protobuf serialization - protocol logic is in the bridge
type Handler struct {
	runner  transport.Runner
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewHandler creates a new Connect RPC handler. A positive timeout bounds every run.
func NewHandler(runner transport.Runner, log logrus.FieldLogger, m *metrics.Metrics, timeout time.Duration) *Handler {
	return &Handler{
		runner:  runner,
		log:     log.WithField("transport", "connect"),
		metrics: m,
		timeout: timeout,
	}
}

// Route returns the mux pattern and HTTP handler for RunAgent.
func (h *Handler) Route(opts ...connect.HandlerOption) (string, http.Handler) {
	return RunAgentProcedure, connect.NewServerStreamHandler(RunAgentProcedure, h.RunAgent, opts...)
}

// eventSender implements transport.EventSender for Connect RPC transport
type eventSender struct {
	stream *connect.ServerStream[structpb.Struct]
}

func (s *eventSender) SendEvent(ev events.Event) error {
	msg, err := convertAGUIEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to convert event: %w", err)
	}
	return s.stream.Send(msg)
}

// RunAgent implements the AGUIService.RunAgent RPC method
func (h *Handler) RunAgent(ctx context.Context, req *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
	input, err := convertRunAgentInput(req.Msg)
	if err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	runCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log := h.log.WithFields(logrus.Fields{"thread_id": input.ThreadID, "run_id": input.RunID})
	seq, err := h.runner.Run(runCtx, input)
	if err != nil {
		log.WithError(err).Warn("run rejected")
		return connect.NewError(transport.ConnectCode(err), err)
	}

	sent, err := transport.Pump(ctx, seq, &eventSender{stream: stream}, log, h.metrics)
	switch {
	case err == nil:
		return nil
	case sent == 0:
		log.WithError(err).Error("run failed before the stream opened")
		return connect.NewError(transport.ConnectCode(err), err)
	default:
		// Already logged by the pump; RUN_ERROR went out in-band.
		return connect.NewError(transport.ConnectCode(err), err)
	}
}

// convertRunAgentInput decodes the AG-UI JSON shape carried by a Struct.
func convertRunAgentInput(msg *structpb.Struct) (*domain.RunAgentInput, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrMalformedRequest)
	}
	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}
	var input domain.RunAgentInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: invalid request: %v", domain.ErrMalformedRequest, err)
	}
	return &input, nil
}

// convertAGUIEvent converts an AG-UI event to a protobuf Struct
func convertAGUIEvent(event events.Event) (*structpb.Struct, error) {
	// Serialize event to JSON
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	// Parse JSON into a map
	var eventMap map[string]any
	if err := json.Unmarshal(eventJSON, &eventMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event JSON: %w", err)
	}

	return structpb.NewStruct(eventMap)
}
