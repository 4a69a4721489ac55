// Package structeq implements the structural equality family: EQL(a, b)
// walks both subterms structurally, distributing over SUP and ERA and
// comparing NUMs and constructors field-by-field. Lambdas are never
// structurally equal, extensionality is not provided.
package structeq

import (
	"hvm/internal/heap"
	"hvm/internal/term"
)

// Force reduces a term to weak head normal form. internal/reduce supplies
// this; structeq stays independent of the reducer so the two packages don't
// import each other.
type Force func(t term.Term) term.Term

// Compare implements EQL(a, b), forcing both sides to WNF as needed via
// force. The result is always one of: NUM(0), NUM(1), ERA, or a SUP whose
// two branches are themselves (unevaluated) EQL comparisons, callers that
// want a final boolean must keep reducing the result if it comes back as a
// SUP or nested EQL.
func Compare(h *heap.Heap, alloc func(n int) (uint32, error), force Force, a, b term.Term, compareAnnotations bool) (term.Term, error) {
	// A literal ANN side is not forced unless annotations are compared:
	// forcing looks through ANN, which would defeat its opacity.
	if compareAnnotations || a.Tag() != term.Ann {
		a = force(a)
	}
	if compareAnnotations || b.Tag() != term.Ann {
		b = force(b)
	}

	// ERA on either side reduces to ERA.
	if a.Tag() == term.Era || b.Tag() == term.Era {
		return term.Pack(term.Era, 0, 0), nil
	}

	// ANN is opaque by default (equal only by heap identity, the same
	// fallthrough every other unrecognised tag gets below); a host may
	// opt into comparing the annotated value and ignoring the type tag.
	if compareAnnotations {
		if a.Tag() == term.Ann {
			a = force(h.DerefCell(a.Val()))
		}
		if b.Tag() == term.Ann {
			b = force(h.DerefCell(b.Val()))
		}
	}

	// A SUP on either side distributes: eql(sup_L(x,y), b) = sup_L(eql(x,b), eql(y,b)).
	if a.Tag() == term.Sup {
		return distribute(h, alloc, a, b, true)
	}
	if b.Tag() == term.Sup {
		return distribute(h, alloc, b, a, false)
	}

	switch {
	case a.Tag() == term.Num && b.Tag() == term.Num:
		return boolTerm(a.Val() == b.Val()), nil

	case term.IsCtor(a.Tag()) && term.IsCtor(b.Tag()):
		if a.Tag() != b.Tag() || a.Ext() != b.Ext() {
			return boolTerm(false), nil
		}
		arity := term.CtorArity(a.Tag())
		allEqual := true
		for i := 0; i < arity; i++ {
			fa := h.DerefCell(a.Val() + uint32(i))
			fb := h.DerefCell(b.Val() + uint32(i))
			res, err := Compare(h, alloc, force, fa, fb, compareAnnotations)
			if err != nil {
				return 0, err
			}
			res = force(res)
			if res.Tag() != term.Num || res.Val() != 1 {
				allEqual = false
			}
		}
		return boolTerm(allEqual), nil

	case a.Tag() == term.Lam || b.Tag() == term.Lam:
		// Lambdas are never structurally equal; extensionality is not
		// provided.
		return boolTerm(false), nil

	default:
		return boolTerm(a.Tag() == b.Tag() && a.Ext() == b.Ext() && a.Val() == b.Val()), nil
	}
}

func boolTerm(v bool) term.Term {
	if v {
		return term.Pack(term.Num, 0, 1)
	}
	return term.Pack(term.Num, 0, 0)
}

// distribute builds sup_L(eql(left, other), eql(right, other)) (or with
// operand order reversed, when the SUP was found on the right side of the
// original comparison) as a fresh, unevaluated EQL/SUP pair in the heap.
func distribute(h *heap.Heap, alloc func(n int) (uint32, error), supTerm, other term.Term, supFirst bool) (term.Term, error) {
	label := supTerm.Ext()
	left := h.DerefCell(supTerm.Val())
	right := h.DerefCell(supTerm.Val() + 1)

	pairBase, err := alloc(2)
	if err != nil {
		return 0, err
	}

	mkEql := func(x, y term.Term) (uint32, error) {
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		if supFirst {
			h.Set(base, x)
			h.Set(base+1, y)
		} else {
			h.Set(base, y)
			h.Set(base+1, x)
		}
		return base, nil
	}

	leftEql, err := mkEql(left, other)
	if err != nil {
		return 0, err
	}
	rightEql, err := mkEql(right, other)
	if err != nil {
		return 0, err
	}

	h.Set(pairBase, term.Pack(term.Eql, 0, leftEql))
	h.Set(pairBase+1, term.Pack(term.Eql, 0, rightEql))
	return term.Pack(term.Sup, label, pairBase), nil
}
