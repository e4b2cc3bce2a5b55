// Package registry implements the pending-query registry that correlates a
// Handle returned to a caller with the eventual outcome of the network
// operation it names. A Registry has exactly one owner — the swarm
// supervisor's event loop — and performs no channel operations or blocking
// waits of its own; every method here is a synchronous map mutation the
// owner calls inline between receives on its own select statement.
package registry

import (
	"time"

	"github.com/netabase/netabase/internal/errs"
)

// Handle names one in-flight operation. Handles are never reused: Insert
// hands out a strictly increasing sequence for the lifetime of a Registry.
type Handle uint64

// Outcome is delivered exactly once to an entry's sink, whether by Resolve,
// ResolveAll, or SweepExpired. NotFound distinguishes "the DHT has no
// record at this key" (not an error) from both a successful Value and a
// genuine Err.
type Outcome struct {
	Value    []byte
	NotFound bool
	Err      error
}

type entry struct {
	sink     chan<- Outcome
	deadline time.Time
}

// Registry owns the handle -> entry correlation table. It is not safe for
// concurrent use: callers must serialize all access through a single
// goroutine, per the package doc.
type Registry struct {
	next    uint64
	entries map[Handle]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[Handle]*entry)}
}

// Insert allocates a fresh Handle bound to sink, expiring at deadline if
// never resolved first. The caller retains ownership of sink and must not
// close it: Resolve/ResolveAll/SweepExpired close it on the registry's
// behalf once the entry is fulfilled.
func (r *Registry) Insert(sink chan<- Outcome, deadline time.Time) Handle {
	r.next++
	h := Handle(r.next)
	r.entries[h] = &entry{sink: sink, deadline: deadline}
	return h
}

// Resolve fulfills h with outcome and removes it from the table. It reports
// false if h is unknown — already resolved, expired, or never issued — in
// which case outcome is dropped and the sink is left untouched. This is
// what makes fulfillment at-most-once: a DHT goroutine racing a shutdown
// sweep can never deliver twice.
func (r *Registry) Resolve(h Handle, outcome Outcome) bool {
	e, ok := r.entries[h]
	if !ok {
		return false
	}
	delete(r.entries, h)
	deliver(e, outcome)
	return true
}

// ResolveAll fulfills every still-pending entry with outcome and drains the
// table. The swarm supervisor calls this on shutdown so no caller is left
// waiting on a sink that will never be written to again.
func (r *Registry) ResolveAll(outcome Outcome) int {
	n := len(r.entries)
	for h, e := range r.entries {
		delete(r.entries, h)
		deliver(e, outcome)
	}
	return n
}

// SweepExpired fulfills every entry whose deadline is at or before now with
// a KindTimeout error, and returns the handles it swept. Callers should
// invoke this periodically from the same goroutine that calls Insert and
// Resolve.
func (r *Registry) SweepExpired(now time.Time) []Handle {
	var expired []Handle
	for h, e := range r.entries {
		if !now.Before(e.deadline) {
			expired = append(expired, h)
		}
	}
	for _, h := range expired {
		e := r.entries[h]
		delete(r.entries, h)
		deliver(e, Outcome{Err: errs.New("registry.SweepExpired", errs.KindTimeout)})
	}
	return expired
}

// Len reports the number of entries still pending.
func (r *Registry) Len() int {
	return len(r.entries)
}

// deliver performs a non-blocking send to a sink of capacity >= 1, then
// closes it. A sink whose owner has already stopped listening (buffer full
// or abandoned) simply never sees the outcome; it has no other consumer.
func deliver(e *entry, outcome Outcome) {
	select {
	case e.sink <- outcome:
	default:
	}
	close(e.sink)
}
