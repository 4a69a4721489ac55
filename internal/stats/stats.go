// Package stats holds the runtime's global mutable counters: interaction
// count and commutation count, both atomics reset at reduction
// boundaries, plus the advisory commutation-limit flag.
package stats

import "sync/atomic"

// Counters is safe for concurrent use by multiple reducer/batch workers.
type Counters struct {
	Interactions     atomic.Uint64
	Commutations     atomic.Uint64
	CommutationLimit uint64 // 0 means unlimited
	limitExceeded    atomic.Bool
}

// Interaction records one interaction-table firing.
func (c *Counters) Interaction() {
	c.Interactions.Add(1)
}

// Commutation records one commuting interaction (dup-sup commute, or a
// primitive lifting a SUP outward) and checks it against the
// configured limit. Exceeding the limit is advisory only: it sets a flag,
// it does not abort the reduction.
func (c *Counters) Commutation() {
	n := c.Commutations.Add(1)
	if c.CommutationLimit != 0 && n > c.CommutationLimit {
		c.limitExceeded.Store(true)
	}
}

// LimitExceeded reports whether the configured commutation limit has been
// crossed at some point during this run.
func (c *Counters) LimitExceeded() bool {
	return c.limitExceeded.Load()
}

// Snapshot is an immutable point-in-time copy for reporting.
type Snapshot struct {
	Interactions  uint64
	Commutations  uint64
	LimitExceeded bool
}

// Snapshot takes a consistent-enough point-in-time read of the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Interactions:  c.Interactions.Load(),
		Commutations:  c.Commutations.Load(),
		LimitExceeded: c.limitExceeded.Load(),
	}
}

// Reset zeroes the counters, for use at reduction/program boundaries.
func (c *Counters) Reset() {
	c.Interactions.Store(0)
	c.Commutations.Store(0)
	c.limitExceeded.Store(false)
}
