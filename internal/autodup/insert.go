package autodup

import "hvm/internal/term"

// Labels draws fresh auto-generated SUP/DUP labels, partitioned at
// term.AutoDupLabelBase so they never collide with a user-written label.
type Labels struct{ next uint32 }

// NewLabels starts the sequence at the auto-dup label space.
func NewLabels() *Labels {
	return &Labels{next: term.AutoDupLabelBase}
}

func (l *Labels) fresh() uint32 {
	v := l.next
	l.next++
	return v
}

// Insert rewrites e so every binder (Lam, and each of a DupE's two
// binders) is referenced at most once, inserting fresh-labelled DUP
// chains for any variable used more than once. Processing is bottom-up:
// children are fixed first, so a binder's own reference count is counted
// against an already-affine body.
func Insert(e Expr, labels *Labels) Expr {
	switch t := e.(type) {
	case *Var:
		return t

	case *Lam:
		body := Insert(t.Body, labels)
		body, _ = fixVar(body, 0, labels)
		return &Lam{Body: body}

	case *App:
		return &App{Fun: Insert(t.Fun, labels), Arg: Insert(t.Arg, labels)}

	case *SupE:
		return &SupE{Label: t.Label, Left: Insert(t.Left, labels), Right: Insert(t.Right, labels)}

	case *DupE:
		value := Insert(t.Value, labels)
		body := Insert(t.Body, labels)
		// x and y are fixed sequentially, each against its own original
		// index (0 and 1) relative to body's root: wrapping body to fix x
		// replaces body with a new expression occupying the very same
		// position, so y's index relative to that new root is unchanged.
		body, _ = fixVar(body, 0, labels)
		body, _ = fixVar(body, 1, labels)
		return &DupE{Label: t.Label, Value: value, Body: body}

	case *NumE:
		return t

	case *EraE:
		return t

	case *CtorE:
		fields := make([]Expr, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Insert(f, labels)
		}
		return &CtorE{ID: t.ID, Fields: fields}

	case *MatE:
		branches := make([]Expr, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = Insert(b, labels)
		}
		return &MatE{Scrutinee: Insert(t.Scrutinee, labels), Branches: branches}

	case *SwiE:
		return &SwiE{
			Scrutinee: Insert(t.Scrutinee, labels),
			Zero:      Insert(t.Zero, labels),
			Succ:      Insert(t.Succ, labels),
		}

	case *PrimE:
		args := make([]Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = Insert(a, labels)
		}
		return &PrimE{Op: t.Op, Args: args}

	case *EqlE:
		return &EqlE{A: Insert(t.A, labels), B: Insert(t.B, labels)}

	case *AnnE:
		return &AnnE{Value: Insert(t.Value, labels), Type: Insert(t.Type, labels)}

	case *RefE:
		return t

	default:
		panic("autodup: unhandled Expr type")
	}
}

// countVar counts free occurrences of the variable bound at relative
// index idx (as seen from e's own root) within e.
func countVar(e Expr, idx int) int {
	switch t := e.(type) {
	case *Var:
		if t.Index == idx {
			return 1
		}
		return 0
	case *Lam:
		return countVar(t.Body, idx+1)
	case *App:
		return countVar(t.Fun, idx) + countVar(t.Arg, idx)
	case *SupE:
		return countVar(t.Left, idx) + countVar(t.Right, idx)
	case *DupE:
		return countVar(t.Value, idx) + countVar(t.Body, idx+2)
	case *NumE, *EraE, *RefE:
		return 0
	case *CtorE:
		n := 0
		for _, f := range t.Fields {
			n += countVar(f, idx)
		}
		return n
	case *MatE:
		n := countVar(t.Scrutinee, idx)
		for _, b := range t.Branches {
			n += countVar(b, idx)
		}
		return n
	case *SwiE:
		return countVar(t.Scrutinee, idx) + countVar(t.Zero, idx) + countVar(t.Succ, idx)
	case *PrimE:
		n := 0
		for _, a := range t.Args {
			n += countVar(a, idx)
		}
		return n
	case *EqlE:
		return countVar(t.A, idx) + countVar(t.B, idx)
	case *AnnE:
		return countVar(t.Value, idx) + countVar(t.Type, idx)
	default:
		panic("autodup: unhandled Expr type")
	}
}

// fixVar rewrites every occurrence of the variable bound at relative
// index targetIdx within body into a distinct fresh variable, wrapping
// body in a chain of (n-1) DUPs when there are n > 1 occurrences. The
// returned Expr occupies exactly the position body used to occupy, so a
// sibling binder's own index (e.g. DupE's y, fixed right after x) is
// unaffected and must still be looked up at its original index. The
// second return value is the number of new binders introduced (0 if
// there were 0 or 1 occurrences), for informational use only.
func fixVar(body Expr, targetIdx int, labels *Labels) (Expr, int) {
	n := countVar(body, targetIdx)
	if n <= 1 {
		return body, 0
	}

	chainLen := n - 1
	shiftAmount := 2 * chainLen
	occReplacements := make([]int, n)
	for i := 0; i < chainLen; i++ {
		occReplacements[i] = 2 * (chainLen - 1 - i)
	}
	occReplacements[n-1] = 1

	occurrence := 0
	rewritten := substituteAndShift(body, targetIdx, 0, &occurrence, occReplacements, shiftAmount)

	dupLabels := make([]uint32, chainLen)
	for i := range dupLabels {
		dupLabels[i] = labels.fresh()
	}

	result := rewritten
	for j := chainLen - 1; j >= 0; j-- {
		// The outermost layer (j==0) occupies exactly the position body
		// used to occupy, so its Value refers to the split variable at
		// its original index, targetIdx. Every inner layer's Value refers
		// to the immediately enclosing layer's second projection (index 1
		// in its own Body's frame).
		var value Expr
		if j == 0 {
			value = &Var{Index: targetIdx}
		} else {
			value = &Var{Index: 1}
		}
		result = &DupE{Label: dupLabels[j], Value: value, Body: result}
	}
	return result, shiftAmount
}

// substituteAndShift walks e tracking depth (the number of binders
// crossed since the call that found targetIdx, weighted +1 per Lam binder
// and +2 per DupE binder pair). A Var exactly at targetIdx+depth is the
// i-th occurrence of the variable being split and is replaced per
// replacements[i] (itself shifted by depth, since the replacement
// variable sits at the same nesting position the target did). Any other
// Var at or above depth is free in e (bound outside the walk, including
// a sibling binder of the same DupE when targetIdx is 1) and must shift
// by shiftAmount, the total size of the new DUP chain being inserted
// around it. A Var below depth is local to e and is left alone.
func substituteAndShift(e Expr, targetIdx, depth int, occurrence *int, replacements []int, shiftAmount int) Expr {
	switch t := e.(type) {
	case *Var:
		threshold := targetIdx + depth
		switch {
		case t.Index == threshold:
			idx := replacements[*occurrence] + depth
			*occurrence++
			return &Var{Index: idx}
		case t.Index >= depth:
			return &Var{Index: t.Index + shiftAmount}
		default:
			return t
		}

	case *Lam:
		return &Lam{Body: substituteAndShift(t.Body, targetIdx, depth+1, occurrence, replacements, shiftAmount)}

	case *App:
		return &App{
			Fun: substituteAndShift(t.Fun, targetIdx, depth, occurrence, replacements, shiftAmount),
			Arg: substituteAndShift(t.Arg, targetIdx, depth, occurrence, replacements, shiftAmount),
		}

	case *SupE:
		return &SupE{
			Label: t.Label,
			Left:  substituteAndShift(t.Left, targetIdx, depth, occurrence, replacements, shiftAmount),
			Right: substituteAndShift(t.Right, targetIdx, depth, occurrence, replacements, shiftAmount),
		}

	case *DupE:
		return &DupE{
			Label: t.Label,
			Value: substituteAndShift(t.Value, targetIdx, depth, occurrence, replacements, shiftAmount),
			Body:  substituteAndShift(t.Body, targetIdx, depth+2, occurrence, replacements, shiftAmount),
		}

	case *NumE, *EraE, *RefE:
		return t

	case *CtorE:
		fields := make([]Expr, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = substituteAndShift(f, targetIdx, depth, occurrence, replacements, shiftAmount)
		}
		return &CtorE{ID: t.ID, Fields: fields}

	case *MatE:
		branches := make([]Expr, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = substituteAndShift(b, targetIdx, depth, occurrence, replacements, shiftAmount)
		}
		return &MatE{
			Scrutinee: substituteAndShift(t.Scrutinee, targetIdx, depth, occurrence, replacements, shiftAmount),
			Branches:  branches,
		}

	case *SwiE:
		return &SwiE{
			Scrutinee: substituteAndShift(t.Scrutinee, targetIdx, depth, occurrence, replacements, shiftAmount),
			Zero:      substituteAndShift(t.Zero, targetIdx, depth, occurrence, replacements, shiftAmount),
			Succ:      substituteAndShift(t.Succ, targetIdx, depth, occurrence, replacements, shiftAmount),
		}

	case *PrimE:
		args := make([]Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = substituteAndShift(a, targetIdx, depth, occurrence, replacements, shiftAmount)
		}
		return &PrimE{Op: t.Op, Args: args}

	case *EqlE:
		return &EqlE{
			A: substituteAndShift(t.A, targetIdx, depth, occurrence, replacements, shiftAmount),
			B: substituteAndShift(t.B, targetIdx, depth, occurrence, replacements, shiftAmount),
		}

	case *AnnE:
		return &AnnE{
			Value: substituteAndShift(t.Value, targetIdx, depth, occurrence, replacements, shiftAmount),
			Type:  substituteAndShift(t.Type, targetIdx, depth, occurrence, replacements, shiftAmount),
		}

	default:
		panic("autodup: unhandled Expr type")
	}
}
