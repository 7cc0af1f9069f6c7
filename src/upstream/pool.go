package upstream

import (
	"errors"
	"sync/atomic"
)

// Eligibility decides whether a target should be offered new requests. It is
// implemented by the health observer; see the health package.
type Eligibility interface {
	// IsEligible returns false if the target should be skipped during
	// selection.
	IsEligible(target *Target) bool
}

// Pool holds the ordered set of upstream targets and the round-robin cursor.
//
// The cursor is the only piece of state shared between request handlers. It is
// a monotonically increasing counter advanced with an atomic add, so any number
// of concurrent selections distribute across the targets without a lost update
// skipping or double-serving an upstream.
type Pool struct {
	targets []*Target
	cursor  uint64
}

// NewPool creates a pool from an ordered list of targets. At least one target
// is required.
func NewPool(targets []*Target) (*Pool, error) {
	if len(targets) == 0 {
		return nil, errors.New("upstream pool must contain at least one target")
	}

	pool := &Pool{
		targets: make([]*Target, len(targets)),
	}
	copy(pool.targets, targets)

	return pool, nil
}

// Len returns the number of targets in the pool.
func (pool *Pool) Len() int {
	return len(pool.targets)
}

// Targets returns the targets in configured order.
func (pool *Pool) Targets() []*Target {
	targets := make([]*Target, len(pool.targets))
	copy(targets, pool.targets)

	return targets
}

// Next returns the next target in round-robin order. It is safe to call from
// any number of goroutines.
func (pool *Pool) Next() *Target {
	index := atomic.AddUint64(&pool.cursor, 1) - 1
	return pool.targets[index%uint64(len(pool.targets))]
}

// NextEligible returns the next target that el considers eligible, preserving
// round-robin order among the eligible subset. The cursor is advanced past any
// skipped targets, so an ineligible target does not cost its neighbour an
// extra turn and distribution stays even among the eligible subset. If no
// target is eligible the regular round-robin choice is returned, so that a
// request is still attempted and failures reflect real connection errors.
func (pool *Pool) NextEligible(el Eligibility) *Target {
	if el == nil {
		return pool.Next()
	}

	count := uint64(len(pool.targets))

	for {
		base := atomic.LoadUint64(&pool.cursor)

		eligibleOffset := count
		for offset := uint64(0); offset < count; offset++ {
			if el.IsEligible(pool.targets[(base+offset)%count]) {
				eligibleOffset = offset
				break
			}
		}

		if eligibleOffset == count {
			return pool.Next()
		}

		if atomic.CompareAndSwapUint64(&pool.cursor, base, base+eligibleOffset+1) {
			return pool.targets[(base+eligibleOffset)%count]
		}

		// Lost the race with a concurrent selection; rescan from the new
		// cursor position.
	}
}
