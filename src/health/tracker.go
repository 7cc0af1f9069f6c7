package health

import (
	"context"
	"sync"
	"time"

	"github.com/chrisjchandler/Riffy/src/upstream"
)

// FailureRecord holds per-target failure counters.
type FailureRecord struct {
	// ConsecutiveFailures is the number of failures since the last success.
	ConsecutiveFailures int

	// LastFailure is the time of the most recent failure.
	LastFailure time.Time
}

// Tracker is an observer that marks a target ineligible once it accumulates
// Threshold consecutive failures, and re-admits it after the Cooldown window
// has passed, so that a recovered upstream gets probed again.
type Tracker struct {
	// Threshold is the number of consecutive failures after which a target
	// becomes ineligible.
	Threshold int

	// Cooldown is how long an ineligible target is skipped before it is
	// offered a request again.
	Cooldown time.Duration

	// Now returns the current time. It defaults to time.Now and exists so
	// that tests can control the clock.
	Now func() time.Time

	mutex   sync.Mutex
	records map[string]*FailureRecord
}

// RecordSuccess resets the failure count for target.
func (t *Tracker) RecordSuccess(_ context.Context, target *upstream.Target) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.records, target.Address)
}

// RecordFailure increments the failure count for target.
func (t *Tracker) RecordFailure(_ context.Context, target *upstream.Target) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.records == nil {
		t.records = map[string]*FailureRecord{}
	}

	record := t.records[target.Address]
	if record == nil {
		record = &FailureRecord{}
		t.records[target.Address] = record
	}

	record.ConsecutiveFailures++
	record.LastFailure = t.now()
}

// IsEligible returns false while target is inside its cooldown window after
// reaching the failure threshold.
func (t *Tracker) IsEligible(target *upstream.Target) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	record := t.records[target.Address]
	if record == nil || record.ConsecutiveFailures < t.Threshold {
		return true
	}

	if t.Cooldown > 0 && t.now().Sub(record.LastFailure) >= t.Cooldown {
		// Let a single request through to probe the target. If it fails the
		// failure count grows and the window starts again.
		return true
	}

	return false
}

// Record returns a copy of the failure record for target, if any.
func (t *Tracker) Record(target *upstream.Target) (FailureRecord, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	record := t.records[target.Address]
	if record == nil {
		return FailureRecord{}, false
	}

	return *record, true
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}

	return time.Now()
}
