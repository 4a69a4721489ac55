// Package safety implements analyze_safety: a static, non-reducing
// pattern match over a heap term that flags known commutation blow-up
// shapes before the caller ever runs the reducer on them. It recognizes
// one specific known-risky shape and falls through to the generic
// verdict otherwise; no general-purpose analysis is attempted.
package safety

import "hvm/internal/term"

// Level is analyze_safety's three-way verdict.
type Level int

const (
	Safe Level = iota
	Warn
	Unsafe
)

func (l Level) String() string {
	switch l {
	case Safe:
		return "safe"
	case Warn:
		return "warn"
	case Unsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// reader is the minimal heap access Analyze needs: read a cell without
// following substitution chains (a static check walks the term as
// written, not as it might evaluate).
type reader interface {
	Get(i uint32) term.Term
}

// maxDepth bounds the walk so a self-referential or very deep term
// cannot make analyze_safety itself loop or recurse unboundedly; past
// this depth the walk gives up and reports whatever it found so far
// rather than escalating, since an unexamined subterm is not evidence of
// danger.
const maxDepth = 4096

// Analyze walks root looking for the one shape known to drive
// commutation blow-up: a DUP whose shared value cell directly holds a SUP
// carrying a different label than the DUP itself, the dup-sup-commute
// redex, which allocates and increments the commutation counter on every
// firing. A SUP reached only through further indirection from that cell
// is not flagged. A DUP meeting a same-label SUP annihilates in O(1) and
// is never flagged.
func Analyze(h reader, root term.Term) Level {
	level := Safe
	walk(h, root, 0, &level)
	return level
}

func walk(h reader, t term.Term, depth int, level *Level) {
	if *level == Unsafe || depth >= maxDepth {
		return
	}

	switch t.Tag() {
	case term.Dup:
		label := t.Ext()
		v := h.Get(t.Val() + 2)
		if riskyCommute(h, v, label, depth) {
			*level = Warn
		}
		walk(h, v, depth+1, level)
		walk(h, h.Get(t.Val()+3), depth+1, level)

	case term.App:
		walk(h, h.Get(t.Val()), depth+1, level)
		walk(h, h.Get(t.Val()+1), depth+1, level)

	case term.Lam:
		walk(h, h.Get(t.Val()+1), depth+1, level)

	case term.Sup:
		walk(h, h.Get(t.Val()), depth+1, level)
		walk(h, h.Get(t.Val()+1), depth+1, level)

	case term.P01:
		walk(h, h.Get(t.Val()), depth+1, level)

	case term.P02:
		walk(h, h.Get(t.Val()), depth+1, level)
		walk(h, h.Get(t.Val()+1), depth+1, level)

	case term.Mat:
		n := t.Ext()
		for i := uint32(0); i <= n; i++ {
			walk(h, h.Get(t.Val()+i), depth+1, level)
		}

	case term.Swi:
		walk(h, h.Get(t.Val()), depth+1, level)
		walk(h, h.Get(t.Val()+1), depth+1, level)
		walk(h, h.Get(t.Val()+2), depth+1, level)

	case term.Eql:
		walk(h, h.Get(t.Val()), depth+1, level)
		walk(h, h.Get(t.Val()+1), depth+1, level)

	default:
		if term.IsCtor(t.Tag()) {
			arity := term.CtorArity(t.Tag())
			for i := 0; i < arity; i++ {
				walk(h, h.Get(t.Val()+uint32(i)), depth+1, level)
			}
		}
	}
}

// riskyCommute reports whether v is a SUP carrying a label different
// from the enclosing DUP's, the shape that forces dup-sup-commute
// instead of the O(1) dup-sup-annihilate.
func riskyCommute(h reader, v term.Term, dupLabel uint32, depth int) bool {
	if depth >= maxDepth {
		return false
	}
	return v.Tag() == term.Sup && v.Ext() != dupLabel
}
