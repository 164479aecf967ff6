package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/geokeeper/internal/types"
)

// Error mapping is done once here and shared by both transports.
// Caller mistakes map to INVALID_ARGUMENT, unsatisfiable hints to NOT_FOUND,
// empty catalogs to FAILED_PRECONDITION and catalog storage failures to
// UNAVAILABLE. Context timeouts map to DEADLINE_EXCEEDED.

var (
	// ErrInvalidRequest indicates a request field the service rejects before any work.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnavailable indicates the reference catalog could not be read.
	ErrUnavailable = errors.New("reference catalog unavailable")
)

func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, types.ErrInvalidCRS),
		errors.Is(err, types.ErrMalformedDescriptor),
		errors.Is(err, types.ErrTooFewWaypoints),
		errors.Is(err, types.ErrTooManyWaypoints),
		errors.Is(err, types.ErrHintLengthMismatch),
		errors.Is(err, types.ErrTooManyPoints),
		errors.Is(err, types.ErrNotProjected),
		errors.Is(err, types.ErrOutOfDomain),
		errors.Is(err, ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrPathNotFound):
		return codes.NotFound
	case errors.Is(err, types.ErrNoPathAvailable):
		return codes.FailedPrecondition
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// grpcStatus converts a service error into a gRPC status error.
func grpcStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(errorCode(err), err.Error())
}

// httpStatus maps a service error onto an HTTP status code.
func httpStatus(err error) int {
	switch errorCode(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error payload of the HTTP transport. Optional fields
// echo what the caller needs to fix the request.
type ErrorBody struct {
	Error        string   `json:"error"`
	Code         string   `json:"code"`
	Leg          *int     `json:"leg,omitempty"`
	From         string   `json:"from,omitempty"`
	To           string   `json:"to,omitempty"`
	PathID       *int     `json:"path_id,omitempty"`
	PreferredOps []string `json:"preferred_ops,omitempty"`
	Group        string   `json:"group,omitempty"`
}

func errorBody(err error) ErrorBody {
	body := ErrorBody{Error: err.Error(), Code: errorCode(err).String()}

	var leg *types.LegError
	if errors.As(err, &leg) {
		body.Leg = types.Int(leg.Index)
		body.From, body.To = leg.From, leg.To
	}
	var pnf *types.PathNotFoundError
	if errors.As(err, &pnf) {
		body.PathID = pnf.PathID
		body.PreferredOps = pnf.PreferredOps
	}
	var de *types.DescriptorError
	if errors.As(err, &de) {
		body.Group = de.Group
	}
	return body
}
