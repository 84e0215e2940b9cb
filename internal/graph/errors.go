// Package graph provides an HTTP client for the Microsoft Graph sites,
// drives and drive-item endpoints with automatic retry, pagination and
// error classification.
package graph

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 64 << 10

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrGone         = errors.New("graph: resource gone")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
	ErrUnexpected   = errors.New("graph: unexpected status")
)

// GraphError wraps a sentinel error with HTTP status code, request ID,
// and the API error message body for debugging. It unwraps to both the
// graph sentinel and the matching catalog taxonomy error.
type GraphError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *GraphError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *GraphError) Unwrap() []error {
	return []error{e.Err, taxonomyForStatus(e.StatusCode)}
}

// classifyStatus maps a non-2xx HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrGone
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpected
	}
}

// taxonomyForStatus maps an HTTP status onto the shared error taxonomy.
// 401 surfaces as permission denied: the token source already had its
// chance to refresh before the request went out.
func taxonomyForStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return catalog.ErrInvalidRequest
	case http.StatusNotFound, http.StatusGone:
		return catalog.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return catalog.ErrPermissionDenied
	default:
		return catalog.ErrUpstreamUnavailable
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		// 509 Bandwidth Limit Exceeded (SharePoint).
		const statusBandwidthExceeded = 509
		return code == statusBandwidthExceeded
	}
}

// tokenError marks a failure to obtain a bearer token.
type tokenError struct {
	err error
}

func (e *tokenError) Error() string { return "graph: obtaining token: " + e.err.Error() }

func (e *tokenError) Unwrap() error { return e.err }

// classifyTransport tags errors that never produced an HTTP response
// (network failures, token refresh failures) as upstream unavailability.
func classifyTransport(err error) error {
	if errors.Is(err, catalog.ErrUpstreamUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %w", catalog.ErrUpstreamUnavailable, err)
}
