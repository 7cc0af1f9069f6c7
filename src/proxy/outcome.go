package proxy

import "time"

// Outcome classifies the result of forwarding a single request to an upstream
// target.
type Outcome int

const (
	// OutcomeSuccess means the upstream response was relayed to the client in
	// full.
	OutcomeSuccess Outcome = iota

	// OutcomeUnreachable means the upstream could not be contacted, or the
	// connection failed before any response byte was produced. The request
	// may be retried against a different target.
	OutcomeUnreachable

	// OutcomeTimeout means the upstream accepted the connection but did not
	// produce response headers within the configured timeout.
	OutcomeTimeout

	// OutcomeClientGone means the client disconnected before the response
	// completed. This is not an upstream failure; the upstream request is
	// aborted and its resources released.
	OutcomeClientGone
)

// String returns a short name for the outcome, used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeClientGone:
		return "client-gone"
	default:
		return "unknown"
	}
}

// IsFailure returns true for outcomes that count against the upstream's
// health.
func (o Outcome) IsFailure() bool {
	return o == OutcomeUnreachable || o == OutcomeTimeout
}

// Result describes the result of a single forwarding attempt.
type Result struct {
	// Outcome classifies the attempt.
	Outcome Outcome

	// StatusCode is the upstream's response status, if one was received.
	StatusCode int

	// HeaderSent is true once any part of a response has been relayed to the
	// client. A failed attempt with HeaderSent set cannot be retried; partial
	// responses cannot be un-sent.
	HeaderSent bool

	// BytesOut is the number of response body bytes relayed to the client.
	BytesOut int64

	// Duration is the time spent on this attempt.
	Duration time.Duration

	// Err is the underlying error for failed attempts.
	Err error
}
