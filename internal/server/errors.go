package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

// Error codes carried in the error envelope.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeDestinationDisabled = "DESTINATION_DISABLED"
)

// APIError is the body of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// ErrDestinationDisabled is returned for transfers while the object-storage
// destination is switched off.
var ErrDestinationDisabled = &APIError{
	Code:    CodeDestinationDisabled,
	Message: "object storage destination is disabled",
	Status:  http.StatusBadRequest,
}

// fromError maps any error onto the envelope, using the catalog taxonomy for
// status and code.
func fromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	out := &APIError{Message: err.Error(), Err: err}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		out.Code, out.Status = CodeUpstreamUnavailable, http.StatusServiceUnavailable
		return out
	}

	switch catalog.KindOf(err) {
	case catalog.ErrInvalidRequest:
		out.Code, out.Status = CodeInvalidRequest, http.StatusBadRequest
	case catalog.ErrNotFound:
		out.Code, out.Status = CodeNotFound, http.StatusNotFound
	case catalog.ErrPermissionDenied:
		out.Code, out.Status = CodePermissionDenied, http.StatusForbidden
	default:
		out.Code, out.Status = CodeUpstreamUnavailable, http.StatusServiceUnavailable
	}

	return out
}
