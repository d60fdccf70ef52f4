package transport

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"connectrpc.com/connect"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"agui-bridge/internal/domain"
)

// Runner starts an AG-UI run. *bridge.Bridge implements it.
type Runner interface {
	Run(ctx context.Context, input *domain.RunAgentInput) (iter.Seq2[events.Event, error], error)
}

// HTTPStatus maps a request-level error to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ConnectCode maps a request-level error to a Connect error code.
func ConnectCode(err error) connect.Code {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return connect.CodeInvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}
