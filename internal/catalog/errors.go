package catalog

import "errors"

// Error taxonomy shared by the navigator, the orchestrator and both
// upstream adapters. Adapters wrap the underlying cause together with one of
// these sentinels so callers can use errors.Is without losing detail.
var (
	// ErrInvalidRequest: malformed or missing input. Never retried.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound: a coordinate or file id does not resolve. Never retried.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied: the upstream refused access. Never retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUpstreamUnavailable: transient network, throttling or auth-refresh
	// failure talking to either upstream. Retried with backoff at the point
	// of use.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// KindOf returns the taxonomy sentinel err belongs to. Errors that carry no
// sentinel are treated as upstream failures. Returns nil for a nil error.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidRequest):
		return ErrInvalidRequest
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	default:
		return ErrUpstreamUnavailable
	}
}

// KindLabel returns a short metrics/log label for err's taxonomy kind.
func KindLabel(err error) string {
	switch KindOf(err) {
	case nil:
		return "none"
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrNotFound:
		return "not_found"
	case ErrPermissionDenied:
		return "permission_denied"
	default:
		return "upstream_unavailable"
	}
}
