// Package index implements the asynchronous, batched, lock-yielding index
// population protocol of spec §4.5: a background task that walks a label or
// relation matrix in resumable batches, releasing the graph read lock
// between batches so writers are never blocked for a full traversal.
package index

import "sync/atomic"

// State is one of the four lifecycle states named in spec §4.5.
type State int32

const (
	Created State = iota
	Populating
	Active
	Dropped
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Populating:
		return "POPULATING"
	case Active:
		return "ACTIVE"
	case Dropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// stateBox is an atomic State, shared between the populator goroutine and
// the writer paths that consult "state == POPULATING || state == ACTIVE"
// (spec §4.5 correctness argument) before indexing directly.
type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) load() State     { return State(b.v.Load()) }
func (b *stateBox) store(s State)   { b.v.Store(int32(s)) }
func (b *stateBox) cas(old, new State) bool {
	return b.v.CompareAndSwap(int32(old), int32(new))
}

// ShouldIndexDirectly reports whether a writer on the entity this index
// covers must update the index synchronously, per spec §4.5: "writers
// consult state == POPULATING || state == ACTIVE and update the index
// directly in both".
func ShouldIndexDirectly(s State) bool { return s == Populating || s == Active }
