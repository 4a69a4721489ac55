// Package collapse implements the lazy, breadth-first superposition
// enumerator: given a term that may contain SUPs, it lifts them to the
// root one level at a time, yielding each concrete (non-SUP) result as
// it's uncovered rather than eagerly expanding the full Cartesian
// product up front. A small struct carries a cursor that Next advances
// one step at a time; collapse never drives a redex, only inspects WNF
// results already produced by Force.
package collapse

import (
	"hvm/internal/heap"
	"hvm/internal/term"
)

// Force reduces a term to weak head normal form. Supplied by the host so
// this package stays independent of internal/reduce, the same split
// internal/structeq uses.
type Force func(t term.Term) term.Term

// State is the residual collapse_step threads between calls: a FIFO
// frontier of terms still to be forced and, if they turn out to be
// SUPs, expanded.
type State struct {
	frontier []term.Term
}

// NewState seeds a fresh residual at root.
func NewState(root term.Term) *State {
	return &State{frontier: []term.Term{root}}
}

// Done reports whether the frontier is exhausted.
func (s *State) Done() bool {
	return len(s.frontier) == 0
}

// Step advances st by forcing and, when necessary, expanding frontier
// nodes breadth-first until either a concrete (non-SUP) result surfaces
// or the frontier drains. ok is false only when the frontier is empty,
// i.e. every branch of every SUP encountered has already been yielded.
func Step(h *heap.Heap, force Force, st *State) (result term.Term, ok bool) {
	for len(st.frontier) > 0 {
		t := force(st.frontier[0])
		st.frontier = st.frontier[1:]

		if t.Tag() == term.Sup {
			left := h.DerefCell(t.Val())
			right := h.DerefCell(t.Val() + 1)
			st.frontier = append(st.frontier, left, right)
			continue
		}
		return t, true
	}
	return 0, false
}

// Iterator wraps Step into a resumable lazy sequence over root's
// superposition structure, enabling enumeration of self-referential
// structures like sup_L(z, s(X)) one result at a time.
type Iterator struct {
	heap  *heap.Heap
	force Force
	state *State
}

// New builds an Iterator over root.
func New(h *heap.Heap, force Force, root term.Term) *Iterator {
	return &Iterator{heap: h, force: force, state: NewState(root)}
}

// Next returns the next concrete result, or ok=false once every branch
// has been enumerated.
func (it *Iterator) Next() (term.Term, bool) {
	return Step(it.heap, it.force, it.state)
}

// Collect drains it entirely, for callers (and tests) that want the
// full, necessarily finite, result set at once rather than stepping.
func Collect(it *Iterator) []term.Term {
	var out []term.Term
	for {
		t, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}
