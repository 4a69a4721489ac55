package autodup

import (
	"hvm/internal/heap"
	"hvm/internal/rterr"
	"hvm/internal/term"
)

// Alloc is the cell allocator Build uses to lower an Expr into heap cells;
// callers pass (*heap.Heap).Alloc.
type Alloc func(n int) (uint32, error)

// Build lowers an already-affine Expr (the output of Insert) into heap
// cells, following the same (tag, base) conventions internal/interact's
// rules assume, see that package's doc comment for the per-tag layout
// table this mirrors exactly.
func Build(e Expr, h *heap.Heap, alloc Alloc) (term.Term, error) {
	return build(e, nil, h, alloc)
}

// env maps a De Bruijn index to the heap address of the binder cell that
// introduced it; env[0] is the nearest enclosing binder.
func build(e Expr, env []uint32, h *heap.Heap, alloc Alloc) (term.Term, error) {
	switch t := e.(type) {
	case *Var:
		if t.Index < 0 || t.Index >= len(env) {
			return 0, rterr.New(rterr.UnknownTag, "unbound variable at De Bruijn index %d", t.Index)
		}
		return term.Pack(term.Var, 0, env[t.Index]), nil

	case *Lam:
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		h.Set(base, term.Pack(term.Var, 0, base))
		body, err := build(t.Body, append([]uint32{base}, env...), h, alloc)
		if err != nil {
			return 0, err
		}
		h.Set(base+1, body)
		return term.Pack(term.Lam, 0, base), nil

	case *App:
		fun, err := build(t.Fun, env, h, alloc)
		if err != nil {
			return 0, err
		}
		arg, err := build(t.Arg, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		h.Set(base, fun)
		h.Set(base+1, arg)
		return term.Pack(term.App, 0, base), nil

	case *SupE:
		left, err := build(t.Left, env, h, alloc)
		if err != nil {
			return 0, err
		}
		right, err := build(t.Right, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		h.Set(base, left)
		h.Set(base+1, right)
		return term.Pack(term.Sup, t.Label, base), nil

	case *DupE:
		value, err := build(t.Value, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(4)
		if err != nil {
			return 0, err
		}
		h.Set(base, term.Pack(term.Var, 0, base))
		h.Set(base+1, term.Pack(term.Var, 0, base+1))
		h.Set(base+2, value)
		body, err := build(t.Body, append([]uint32{base, base + 1}, env...), h, alloc)
		if err != nil {
			return 0, err
		}
		h.Set(base+3, body)
		return term.Pack(term.Dup, t.Label, base), nil

	case *NumE:
		return term.Pack(term.Num, 0, t.Val), nil

	case *EraE:
		return term.Pack(term.Era, 0, 0), nil

	case *CtorE:
		arity := len(t.Fields)
		if arity > 15 {
			return 0, rterr.New(rterr.UnknownTag, "constructor arity %d exceeds the 15-field tag limit", arity)
		}
		base, err := alloc(arity)
		if err != nil {
			return 0, err
		}
		for i, f := range t.Fields {
			field, err := build(f, env, h, alloc)
			if err != nil {
				return 0, err
			}
			h.Set(base+uint32(i), field)
		}
		return term.Pack(term.C00+term.Tag(arity), t.ID, base), nil

	case *MatE:
		scrutinee, err := build(t.Scrutinee, env, h, alloc)
		if err != nil {
			return 0, err
		}
		n := len(t.Branches)
		if n > 15 {
			return 0, rterr.New(rterr.UnknownTag, "match with %d branches exceeds the 15-constructor limit", n)
		}
		base, err := alloc(1 + n)
		if err != nil {
			return 0, err
		}
		h.Set(base, scrutinee)
		for i, b := range t.Branches {
			branch, err := build(b, env, h, alloc)
			if err != nil {
				return 0, err
			}
			h.Set(base+1+uint32(i), branch)
		}
		return term.Pack(term.Mat, uint32(n), base), nil

	case *SwiE:
		scrutinee, err := build(t.Scrutinee, env, h, alloc)
		if err != nil {
			return 0, err
		}
		zero, err := build(t.Zero, env, h, alloc)
		if err != nil {
			return 0, err
		}
		succ, err := build(t.Succ, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(3)
		if err != nil {
			return 0, err
		}
		h.Set(base, scrutinee)
		h.Set(base+1, zero)
		h.Set(base+2, succ)
		return term.Pack(term.Swi, 0, base), nil

	case *PrimE:
		arity := len(t.Args)
		base, err := alloc(arity)
		if err != nil {
			return 0, err
		}
		for i, a := range t.Args {
			arg, err := build(a, env, h, alloc)
			if err != nil {
				return 0, err
			}
			h.Set(base+uint32(i), arg)
		}
		tag := term.P01
		if arity == 2 {
			tag = term.P02
		}
		return term.Pack(tag, uint32(t.Op), base), nil

	case *EqlE:
		a, err := build(t.A, env, h, alloc)
		if err != nil {
			return 0, err
		}
		b, err := build(t.B, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		h.Set(base, a)
		h.Set(base+1, b)
		return term.Pack(term.Eql, 0, base), nil

	case *AnnE:
		value, err := build(t.Value, env, h, alloc)
		if err != nil {
			return 0, err
		}
		typ, err := build(t.Type, env, h, alloc)
		if err != nil {
			return 0, err
		}
		base, err := alloc(2)
		if err != nil {
			return 0, err
		}
		h.Set(base, value)
		h.Set(base+1, typ)
		return term.Pack(term.Ann, 0, base), nil

	case *RefE:
		return term.Pack(term.Ref, 0, t.ID), nil

	default:
		return 0, rterr.New(rterr.UnknownTag, "autodup: unhandled Expr type in Build")
	}
}
