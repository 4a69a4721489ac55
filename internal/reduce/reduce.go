// Package reduce drives the weak head normal form loop: a single-threaded
// cooperative reducer over an explicit work stack of stack-frame terms
// (F_APP, F_MAT, F_SWI, F_OP2, F_USE, F_DUP). There is no host-language
// recursion for the ordinary enter/apply cycle; the one place the reducer
// re-enters itself is forcing a sub-term to WNF mid-rule (USE, EQL).
// Re-entry shares the same work stack and tracks a base_stack_pos
// watermark, so the nested call only ever sees and pops frames it pushed
// itself, leaving the outer computation's frames untouched.
package reduce

import (
	"hvm/internal/heap"
	"hvm/internal/interact"
	"hvm/internal/rterr"
	"hvm/internal/structeq"
	"hvm/internal/term"
)

type frameKind uint8

const (
	fApp frameKind = iota
	fMat
	fSwi
	fOp2
	fUse
	fDup
)

// frame is one entry on the reducer's explicit work stack: the redex term
// whose operand is being forced, plus the bookkeeping F_OP2 needs to force
// its two operands in sequence.
type frame struct {
	kind  frameKind
	term  term.Term
	left  term.Term
	stage uint8
}

// Reducer owns the heap, the interaction table, the stack depth limit, and
// the one shared work stack every WHNF call (including re-entrant forcing
// from EQL/USE) pushes and pops against. It is not safe for concurrent use
// by multiple goroutines reducing the same term. heap.TryClaim is the
// heap's primitive for cross-worker claiming of a cell; internal/batch's
// parallel path works on plain arrays and uses neither.
type Reducer struct {
	Heap     *heap.Heap
	Interact *interact.Machine
	MaxStack int // 0 = unlimited

	stack []frame
}

// New builds a Reducer and wires m.Force to call back into it, so EQL and
// USE can force a sub-term to WNF without internal/interact importing this
// package (which would make an import cycle: reduce already imports
// interact).
func New(h *heap.Heap, m *interact.Machine, maxStack int) *Reducer {
	r := &Reducer{Heap: h, Interact: m, MaxStack: maxStack, stack: make([]frame, 0, 64)}
	m.Force = structeq.Force(r.force)
	return r
}

// force is the structeq.Force / interact callback: reduce t to WNF,
// panicking on error so it fits the error-less Force signature. The public
// entry points below recover these panics and convert them back into a
// returned error.
func (r *Reducer) force(t term.Term) term.Term {
	base := len(r.stack)
	v, err := r.whnf(t, base)
	r.stack = r.stack[:base]
	if err != nil {
		panic(err)
	}
	return v
}

// Reduce drives t to weak head normal form: the outermost constructor is
// final, but sub-terms may remain unevaluated redexes.
func (r *Reducer) Reduce(t term.Term) (result term.Term, err error) {
	base := len(r.stack)
	defer func() {
		r.stack = r.stack[:base]
		if rec := recover(); rec != nil {
			err = asError(rec)
		}
	}()
	return r.whnf(t, base)
}

// Normalize drives t to full normal form: WNF at the root, then recursively
// WNF at every sub-term position reachable through LAM bodies, constructor
// fields and SUP branches. Fields of a head that stays APP, MAT, SWI or a
// primitive are not descended into.
func (r *Reducer) Normalize(t term.Term) (result term.Term, err error) {
	base := len(r.stack)
	defer func() {
		r.stack = r.stack[:base]
		if rec := recover(); rec != nil {
			err = asError(rec)
		}
	}()
	head, err := r.whnf(t, base)
	if err != nil {
		return 0, err
	}
	return r.normalizeChildren(head)
}

func (r *Reducer) normalizeChildren(t term.Term) (term.Term, error) {
	switch {
	case t.Tag() == term.Lam:
		if _, err := r.normalizeField(t.Val() + 1); err != nil {
			return 0, err
		}
		return t, nil

	case t.Tag() == term.Sup:
		if _, err := r.normalizeField(t.Val()); err != nil {
			return 0, err
		}
		if _, err := r.normalizeField(t.Val() + 1); err != nil {
			return 0, err
		}
		return t, nil

	case term.IsCtor(t.Tag()):
		arity := term.CtorArity(t.Tag())
		for i := 0; i < arity; i++ {
			if _, err := r.normalizeField(t.Val() + uint32(i)); err != nil {
				return 0, err
			}
		}
		return t, nil

	default:
		// NUM, ERA, free VAR, REF/ALO with no pending application: already
		// fully normal, nothing to recurse into.
		return t, nil
	}
}

// normalizeField normalizes the term stored at heap cell i in place,
// publishing the normalized result back so later readers see it directly.
func (r *Reducer) normalizeField(i uint32) (term.Term, error) {
	child := r.Heap.DerefCell(i)
	base := len(r.stack)
	head, err := r.whnf(child, base)
	r.stack = r.stack[:base]
	if err != nil {
		return 0, err
	}
	full, err := r.normalizeChildren(head)
	if err != nil {
		return 0, err
	}
	r.Heap.Set(i, full)
	return full, nil
}

func asError(rec any) error {
	if e, ok := rec.(error); ok {
		return e
	}
	return rterr.New(rterr.UnknownTag, "panic during reduction: %v", rec)
}

// resolve follows a term's substitution chain, then (for a bare variable
// reference) follows the binder cell it names. A variable whose binder cell
// still holds its own self-sentinel is free/unbound and resolves to itself.
func (r *Reducer) resolve(t term.Term) term.Term {
	t = r.Heap.Deref(t)
	if t.Tag() == term.Var {
		t = r.Heap.DerefCell(t.Val())
	}
	return t
}

func (r *Reducer) limit() int {
	if r.MaxStack <= 0 {
		return int(^uint(0) >> 1) // unlimited
	}
	return r.MaxStack
}

func (r *Reducer) push(f frame) error {
	if len(r.stack) >= r.limit() {
		return rterr.New(rterr.StackOverflow, "reducer stack exceeded %d frames", r.MaxStack)
	}
	r.stack = append(r.stack, f)
	return nil
}

// whnf runs the enter/apply loop starting from cur, pushing and popping
// frames only at or above base, the stack depth this call started at.
// A re-entrant call from force() passes its own current stack depth as
// base, so it only ever touches the frames it pushes itself.
func (r *Reducer) whnf(cur term.Term, base int) (term.Term, error) {
	for {
		cur = r.resolve(cur)

		switch {
		case cur.Tag() == term.Ann:
			// ANN is transparent to evaluation; unwrap to the annotated
			// value and keep entering.
			cur = r.Heap.Get(cur.Val())
			continue

		case cur.Tag() == term.Eql:
			v, err := r.Interact.Eql(cur)
			if err != nil {
				return 0, err
			}
			cur = v
			continue

		case cur.Tag() == term.Dup:
			dupBase, label := cur.Val(), cur.Ext()
			binderX, binderY, vSlot, kSlot := dupBase, dupBase+1, dupBase+2, dupBase+3
			r.Heap.Publish(binderX, term.Pack(term.Co0, label, vSlot))
			r.Heap.Publish(binderY, term.Pack(term.Co1, label, vSlot))
			cur = r.Heap.Get(kSlot)
			continue

		case cur.Tag() == term.App:
			if err := r.push(frame{kind: fApp, term: cur}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue

		case cur.Tag() == term.Mat:
			if err := r.push(frame{kind: fMat, term: cur}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue

		case cur.Tag() == term.Swi:
			if err := r.push(frame{kind: fSwi, term: cur}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue

		case term.IsPrim(cur.Tag()):
			if err := r.push(frame{kind: fOp2, term: cur, stage: 0}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue

		case cur.Tag() == term.Use:
			if err := r.push(frame{kind: fUse, term: cur}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue

		case cur.Tag() == term.Co0, cur.Tag() == term.Co1:
			if err := r.push(frame{kind: fDup, term: cur}); err != nil {
				return 0, err
			}
			cur = r.Heap.Get(cur.Val())
			continue
		}

		// Nothing above matched: cur is already a WNF head constructor.
		// Apply phase.
		if len(r.stack) <= base {
			return cur, nil
		}
		top := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]

		next, err := r.apply(top, cur)
		if err != nil {
			return 0, err
		}
		cur = next
	}
}

// apply combines a popped frame with the now-WNF value it was waiting on,
// returning the next term to enter. For F_OP2's first operand it instead
// pushes a stage-1 frame and returns the second operand to force.
func (r *Reducer) apply(fr frame, value term.Term) (term.Term, error) {
	switch fr.kind {
	case fApp:
		arg := r.Heap.Get(fr.term.Val() + 1)
		switch value.Tag() {
		case term.Lam:
			return r.Interact.Beta(value, arg), nil
		case term.Sup:
			return r.Interact.AppSup(value, arg)
		case term.Era:
			return r.Interact.AppEra(), nil
		case term.Ref, term.Alo:
			return r.Interact.AppRef(value, arg)
		default:
			return 0, rterr.New(rterr.UnknownTag, "cannot apply a value of tag %d", value.Tag())
		}

	case fMat:
		if !term.IsCtor(value.Tag()) {
			return 0, rterr.New(rterr.UnknownTag, "match scrutinee reduced to non-constructor tag %d", value.Tag())
		}
		return r.Interact.MatchCtor(fr.term, value)

	case fSwi:
		if value.Tag() != term.Num {
			return 0, rterr.New(rterr.UnknownTag, "switch scrutinee reduced to non-numeric tag %d", value.Tag())
		}
		return r.Interact.SwitchNum(fr.term, value)

	case fOp2:
		if value.Tag() == term.Sup {
			if fr.term.Tag() == term.P01 {
				return r.Interact.UnaryOpSup(fr.term, value)
			}
			if fr.stage == 0 {
				rightOperand := r.Heap.Get(fr.term.Val() + 1)
				return r.Interact.OpSup(fr.term, value, rightOperand, true)
			}
			return r.Interact.OpSup(fr.term, value, fr.left, false)
		}
		if value.Tag() != term.Num {
			return 0, rterr.New(rterr.UnknownTag, "primitive operand reduced to non-numeric tag %d", value.Tag())
		}
		if fr.stage == 0 && fr.term.Tag() == term.P02 {
			if err := r.push(frame{kind: fOp2, term: fr.term, left: value, stage: 1}); err != nil {
				return 0, err
			}
			return r.Heap.Get(fr.term.Val() + 1), nil
		}
		if fr.stage == 1 {
			return r.Interact.PrimNum(fr.term, fr.left, value)
		}
		return r.Interact.PrimNum(fr.term, value)

	case fUse:
		return r.Interact.Use(fr.term)

	case fDup:
		switch {
		case value.Tag() == term.Lam:
			return r.Interact.DupLam(fr.term, value)
		case value.Tag() == term.Sup:
			if value.Ext() == fr.term.Ext() {
				return r.Interact.DupSupAnnihilate(fr.term, value), nil
			}
			return r.Interact.DupSupCommute(fr.term, value)
		case value.Tag() == term.Num:
			return r.Interact.DupNum(fr.term, value), nil
		case value.Tag() == term.Era:
			return r.Interact.DupEra(fr.term), nil
		case term.IsCtor(value.Tag()):
			return r.Interact.DupCtor(fr.term, value)
		default:
			return 0, rterr.New(rterr.UnknownTag, "dup target reduced to unexpected tag %d", value.Tag())
		}

	default:
		return 0, rterr.New(rterr.UnknownTag, "malformed reducer frame kind %d", fr.kind)
	}
}
