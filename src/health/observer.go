package health

import (
	"context"

	"github.com/chrisjchandler/Riffy/src/upstream"
)

// Observer tracks the outcome of requests forwarded to upstream targets and
// decides whether a target should be offered new requests.
type Observer interface {
	upstream.Eligibility

	// RecordSuccess is called when a request to target completed normally.
	RecordSuccess(ctx context.Context, target *upstream.Target)

	// RecordFailure is called when target could not be reached or did not
	// respond in time. Client disconnections are not failures and are never
	// recorded.
	RecordFailure(ctx context.Context, target *upstream.Target)
}

// NoopObserver discards outcomes and considers every target eligible. It is
// the default observer, preserving pure round-robin selection.
type NoopObserver struct{}

// RecordSuccess does nothing.
func (NoopObserver) RecordSuccess(context.Context, *upstream.Target) {}

// RecordFailure does nothing.
func (NoopObserver) RecordFailure(context.Context, *upstream.Target) {}

// IsEligible always returns true.
func (NoopObserver) IsEligible(*upstream.Target) bool { return true }
