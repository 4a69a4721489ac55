// Package interact implements the interaction table: the designated
// rewrite for every (primary tag, secondary tag) redex pair that can meet
// during reduction. internal/reduce drives the stack-frame loop and calls
// into this package once it knows which two tags are meeting; this
// package only ever performs the one local rewrite named by the rule,
// allocating fresh cells as needed and never looking beyond the redex.
//
// # Heap encoding conventions
//
// The term layout fixes each tag's single `val` field but leaves the
// exact shape of the cells it points at to the implementation. This
// package uses one convention throughout:
//
//	APP   val=base: [base]=fun,    [base+1]=arg
//	LAM   val=base: [base]=binder (self-sentinel until substituted),
//	                [base+1]=body
//	SUP   val=base: [base]=left,   [base+1]=right              (ext=label)
//	DUP   val=base: [base]=binderX, [base+1]=binderY,
//	                [base+2]=v (value being duplicated, forced lazily),
//	                [base+3]=k (continuation)                  (ext=label)
//	CO0/CO1        val=slot (the DUP's v-slot, base+2 above, or a
//	               slot synthesized internally by a Dup* rule)  (ext=label)
//	MAT   val=base: [base]=scrutinee, [base+1..+N]=branch terms (ext=N)
//	SWI   val=base: [base]=scrutinee, [base+1]=zero branch,
//	                [base+2]=successor branch (function of n-1)
//	EQL   val=base: [base]=a, [base+1]=b
//	USE   val=base: [base]=target, [base+1]=continuation (applied to
//	                the forced target)
//	P01/P02 val=base: [base..] = operands, ext = numeric.Op
//	C00..C15 val=base: [base..] = fields (arity = tag-C00), ext=ctor id
//	REF/ALO val=index into the def table, not a heap index
//
// A binder's self-sentinel is Pack(Var, 0, binderAddr): an unsubstituted
// binder cell denotes "the variable bound here"; every binder cell holds
// either the original binder sentinel, or sub=1 pointing at the
// substituted argument.
package interact

import (
	"hvm/internal/heap"
	"hvm/internal/numeric"
	"hvm/internal/rterr"
	"hvm/internal/stats"
	"hvm/internal/structeq"
	"hvm/internal/term"
)

// Alloc is the cell allocator the rules use to build new graph structure.
type Alloc func(n int) (uint32, error)

// Machine bundles the services an interaction rule needs: the heap to read
// and write, an allocator, the shared counters, and (for EQL and USE) a way
// to force a sub-term to weak head normal form without this package
// depending on internal/reduce.
type Machine struct {
	Heap      *heap.Heap
	Alloc     Alloc
	Counts    *stats.Counters
	Force     structeq.Force
	LookupDef func(id uint32) (term.Term, bool)

	// CompareAnnotations controls whether EQL looks through ANN wrappers
	// false by default, so two differently annotated but structurally
	// identical terms compare unequal unless a host opts in.
	CompareAnnotations bool
}

func selfSentinel(addr uint32) term.Term {
	return term.Pack(term.Var, 0, addr)
}

// newBinderBody allocates a fresh (binder, body) pair in the LAM shape,
// returning its base index with the binder cell pre-filled with its own
// self-sentinel.
func (m *Machine) newBinderBody(body term.Term) (uint32, error) {
	base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base, selfSentinel(base))
	m.Heap.Set(base+1, body)
	return base, nil
}

// Beta implements APP ~ LAM: substitute the argument into the lambda body.
// binderAddr is the LAM's binder cell address (lam.Val()), body is the
// term at binderAddr+1.
func (m *Machine) Beta(lam, arg term.Term) term.Term {
	m.Counts.Interaction()
	binderAddr := lam.Val()
	body := m.Heap.DerefCell(binderAddr + 1)
	m.Heap.Publish(binderAddr, arg)
	return body
}

// AppSup implements APP ~ SUP: distribute the application over the
// superposition, duplicating the argument through a fresh DUP whose label
// equals the SUP's.
func (m *Machine) AppSup(sup, arg term.Term) (term.Term, error) {
	m.Counts.Interaction()
	label := sup.Ext()
	left := m.Heap.DerefCell(sup.Val())
	right := m.Heap.DerefCell(sup.Val() + 1)

	argSlot, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(argSlot, arg)
	x0 := term.Pack(term.Co0, label, argSlot)
	x1 := term.Pack(term.Co1, label, argSlot)

	app0Base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(app0Base, left)
	m.Heap.Set(app0Base+1, x0)

	app1Base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(app1Base, right)
	m.Heap.Set(app1Base+1, x1)

	pairBase, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(pairBase, term.Pack(term.App, 0, app0Base))
	m.Heap.Set(pairBase+1, term.Pack(term.App, 0, app1Base))

	return term.Pack(term.Sup, label, pairBase), nil
}

// AppEra implements APP ~ ERA: both the application and its argument
// erase.
func (m *Machine) AppEra() term.Term {
	m.Counts.Interaction()
	return term.Pack(term.Era, 0, 0)
}

// AppRef implements APP ~ REF (and APP ~ ALO identically): inline-expand
// the referenced top-level function body at the application site. The
// caller re-enters reduction on the returned term (a fresh APP of the
// expanded body to the original argument).
func (m *Machine) AppRef(ref, arg term.Term) (term.Term, error) {
	m.Counts.Interaction()
	body, ok := m.LookupDef(ref.Val())
	if !ok {
		return 0, rterr.New(rterr.UnknownTag, "reference to undefined function id %d", ref.Val())
	}
	base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base, body)
	m.Heap.Set(base+1, arg)
	return term.Pack(term.App, 0, base), nil
}

// dupResult publishes the shared slot as sup_L(r0, r1) so that whichever
// CO projection is visited next resolves via the ordinary dup-sup
// annihilate rule, and returns the value for the requested projection
// (isCo0 selects r0, else r1).
func (m *Machine) dupResult(slot uint32, label uint32, r0, r1 term.Term, isCo0 bool) (term.Term, error) {
	pairBase, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(pairBase, r0)
	m.Heap.Set(pairBase+1, r1)
	m.Heap.Publish(slot, term.Pack(term.Sup, label, pairBase))
	if isCo0 {
		return r0, nil
	}
	return r1, nil
}

// DupLam implements CO_k ~ LAM: duplicate the lambda into two fresh
// lambdas. The body is shared through a fresh DUP of the same label, and
// the original binder is substituted by a SUP of that label over the two
// new lambdas' parameters.
func (m *Machine) DupLam(co, lam term.Term) (term.Term, error) {
	m.Counts.Interaction()
	label := co.Ext()
	slot := co.Val()
	isCo0 := co.Tag() == term.Co0

	lamBinder := lam.Val()
	body := m.Heap.DerefCell(lamBinder + 1)

	// Pair cells for the SUP that replaces the original binder; filled in
	// once the new lambdas' binders exist.
	xPairBase, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}

	// Fresh DUP over the body: the two new lambdas' bodies.
	bodySlot, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(bodySlot, body)
	b0 := term.Pack(term.Co0, label, bodySlot)
	b1 := term.Pack(term.Co1, label, bodySlot)

	f0Base, err := m.newBinderBody(b0)
	if err != nil {
		return 0, err
	}
	f1Base, err := m.newBinderBody(b1)
	if err != nil {
		return 0, err
	}

	// The original binder becomes &L{x0, x1}, where x0/x1 are the two new
	// lambdas' parameters.
	m.Heap.Set(xPairBase, selfSentinel(f0Base))
	m.Heap.Set(xPairBase+1, selfSentinel(f1Base))
	m.Heap.Publish(lamBinder, term.Pack(term.Sup, label, xPairBase))

	f0 := term.Pack(term.Lam, 0, f0Base)
	f1 := term.Pack(term.Lam, 0, f1Base)
	return m.dupResult(slot, label, f0, f1, isCo0)
}

// DupSupAnnihilate implements CO_k ~ SUP with equal labels: O(1) projection,
// no heap allocation.
func (m *Machine) DupSupAnnihilate(co, sup term.Term) term.Term {
	m.Counts.Interaction()
	if co.Tag() == term.Co0 {
		return m.Heap.DerefCell(sup.Val())
	}
	return m.Heap.DerefCell(sup.Val() + 1)
}

// DupSupCommute implements CO_k ~ SUP with different labels: push the dup
// underneath the sup.
//
//	!&L{a0,a1} = &M{b,c}; k        (L != M)
//	!&L{b0,b1} = b
//	!&L{c0,c1} = c
//	a0 = &M{b0,c0}
//	a1 = &M{b1,c1}
func (m *Machine) DupSupCommute(co, sup term.Term) (term.Term, error) {
	m.Counts.Interaction()
	m.Counts.Commutation()

	dupLabel := co.Ext()
	slot := co.Val()
	isCo0 := co.Tag() == term.Co0
	supLabel := sup.Ext()

	b := m.Heap.DerefCell(sup.Val())
	c := m.Heap.DerefCell(sup.Val() + 1)

	bSlot, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(bSlot, b)
	b0 := term.Pack(term.Co0, dupLabel, bSlot)
	b1 := term.Pack(term.Co1, dupLabel, bSlot)

	cSlot, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(cSlot, c)
	c0 := term.Pack(term.Co0, dupLabel, cSlot)
	c1 := term.Pack(term.Co1, dupLabel, cSlot)

	sup0Base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(sup0Base, b0)
	m.Heap.Set(sup0Base+1, c0)

	sup1Base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(sup1Base, b1)
	m.Heap.Set(sup1Base+1, c1)

	a0 := term.Pack(term.Sup, supLabel, sup0Base)
	a1 := term.Pack(term.Sup, supLabel, sup1Base)
	return m.dupResult(slot, dupLabel, a0, a1, isCo0)
}

// DupNum implements CO_k ~ NUM: both projections receive the same
// immediate number; no SUP wrapper is needed since the value is trivially
// copyable.
func (m *Machine) DupNum(co, num term.Term) term.Term {
	m.Counts.Interaction()
	m.Heap.Publish(co.Val(), num)
	return num
}

// DupEra implements CO_k ~ ERA: both projections erase.
func (m *Machine) DupEra(co term.Term) term.Term {
	m.Counts.Interaction()
	era := term.Pack(term.Era, 0, 0)
	m.Heap.Publish(co.Val(), era)
	return era
}

// DupCtor implements CO_k ~ C_n: duplicate each field by a fresh lazy dup
// slot, yielding two constructors of the same shape.
func (m *Machine) DupCtor(co, ctor term.Term) (term.Term, error) {
	m.Counts.Interaction()
	label := co.Ext()
	slot := co.Val()
	isCo0 := co.Tag() == term.Co0
	arity := term.CtorArity(ctor.Tag())

	fields0, err := m.Alloc(arity)
	if err != nil {
		return 0, err
	}
	fields1, err := m.Alloc(arity)
	if err != nil {
		return 0, err
	}
	for i := 0; i < arity; i++ {
		field := m.Heap.DerefCell(ctor.Val() + uint32(i))
		fieldSlot, err := m.Alloc(1)
		if err != nil {
			return 0, err
		}
		m.Heap.Set(fieldSlot, field)
		m.Heap.Set(fields0+uint32(i), term.Pack(term.Co0, label, fieldSlot))
		m.Heap.Set(fields1+uint32(i), term.Pack(term.Co1, label, fieldSlot))
	}

	c0 := term.Pack(ctor.Tag(), ctor.Ext(), fields0)
	c1 := term.Pack(ctor.Tag(), ctor.Ext(), fields1)
	return m.dupResult(slot, label, c0, c1, isCo0)
}

// MatchCtor implements MAT ~ C_n: select the nth branch, applying it to the
// constructor's fields in order.
func (m *Machine) MatchCtor(mat, ctor term.Term) (term.Term, error) {
	m.Counts.Interaction()
	branchIdx := ctor.Ext()
	branchCount := mat.Ext()
	if branchIdx >= branchCount {
		return 0, rterr.New(rterr.UnknownTag, "match has %d branches, constructor selects branch %d", branchCount, branchIdx)
	}
	branch := m.Heap.DerefCell(mat.Val() + 1 + branchIdx)
	arity := term.CtorArity(ctor.Tag())
	result := branch
	for i := 0; i < arity; i++ {
		field := m.Heap.DerefCell(ctor.Val() + uint32(i))
		base, err := m.Alloc(2)
		if err != nil {
			return 0, err
		}
		m.Heap.Set(base, result)
		m.Heap.Set(base+1, field)
		result = term.Pack(term.App, 0, base)
	}
	return result, nil
}

// SwitchNum implements SWI ~ NUM: branch on zero vs. successor.
func (m *Machine) SwitchNum(swi, num term.Term) (term.Term, error) {
	m.Counts.Interaction()
	n := num.Val()
	if n == 0 {
		return m.Heap.DerefCell(swi.Val() + 1), nil
	}
	succBranch := m.Heap.DerefCell(swi.Val() + 2)
	base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base, succBranch)
	m.Heap.Set(base+1, term.Pack(term.Num, 0, n-1))
	return term.Pack(term.App, 0, base), nil
}

// OpSup implements the binary-primitive generalization of app-sup: a P02
// meeting a SUP at either operand lifts the SUP outward, duplicating the
// other (still-unresolved) operand through a fresh DUP of the SUP's
// label, the same "lift the SUP outward" treatment app-sup gives an
// application. (USE does not lift a SUP: Use applies its continuation
// to the forced value whatever that value is.) This is what makes an expression like
// !&0{a,b}=&1{#1,#2}; (add a b) converge on &1{#2,#4} rather than
// getting stuck on a non-NUM operand.
func (m *Machine) OpSup(prim, sup, other term.Term, supFirst bool) (term.Term, error) {
	m.Counts.Interaction()
	m.Counts.Commutation()
	label := sup.Ext()
	left := m.Heap.DerefCell(sup.Val())
	right := m.Heap.DerefCell(sup.Val() + 1)

	otherSlot, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(otherSlot, other)
	o0 := term.Pack(term.Co0, label, otherSlot)
	o1 := term.Pack(term.Co1, label, otherSlot)

	base0, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	base1, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	if supFirst {
		m.Heap.Set(base0, left)
		m.Heap.Set(base0+1, o0)
		m.Heap.Set(base1, right)
		m.Heap.Set(base1+1, o1)
	} else {
		m.Heap.Set(base0, o0)
		m.Heap.Set(base0+1, left)
		m.Heap.Set(base1, o1)
		m.Heap.Set(base1+1, right)
	}

	pairBase, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(pairBase, term.Pack(prim.Tag(), prim.Ext(), base0))
	m.Heap.Set(pairBase+1, term.Pack(prim.Tag(), prim.Ext(), base1))
	return term.Pack(term.Sup, label, pairBase), nil
}

// UnaryOpSup implements the P01 (NOT) form of the same generalization: no
// other operand exists, so the SUP's branches are wrapped directly with no
// duplication needed.
func (m *Machine) UnaryOpSup(prim, sup term.Term) (term.Term, error) {
	m.Counts.Interaction()
	m.Counts.Commutation()
	label := sup.Ext()
	left := m.Heap.DerefCell(sup.Val())
	right := m.Heap.DerefCell(sup.Val() + 1)

	base0, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base0, left)
	base1, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base1, right)

	pairBase, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(pairBase, term.Pack(prim.Tag(), prim.Ext(), base0))
	m.Heap.Set(pairBase+1, term.Pack(prim.Tag(), prim.Ext(), base1))
	return term.Pack(term.Sup, label, pairBase), nil
}

// PrimNum implements P_n ~ all-NUM-args: fold the primitive.
func (m *Machine) PrimNum(prim term.Term, args ...term.Term) (term.Term, error) {
	m.Counts.Interaction()
	op := numeric.Op(prim.Ext())
	if !numeric.Valid(op) {
		return 0, rterr.New(rterr.UnknownPrimitive, "unknown primitive id %d", prim.Ext())
	}
	if numeric.IsUnary(op) {
		return term.Pack(term.Num, 0, numeric.Unary(op, args[0].Val())), nil
	}
	return term.Pack(term.Num, 0, numeric.Binary(op, args[0].Val(), args[1].Val())), nil
}

// Use implements USE ~ value: force the target to WNF, then apply the
// continuation to it.
func (m *Machine) Use(use term.Term) (term.Term, error) {
	m.Counts.Interaction()
	target := m.Heap.DerefCell(use.Val())
	forced := m.Force(target)
	cont := m.Heap.DerefCell(use.Val() + 1)
	base, err := m.Alloc(2)
	if err != nil {
		return 0, err
	}
	m.Heap.Set(base, cont)
	m.Heap.Set(base+1, forced)
	return term.Pack(term.App, 0, base), nil
}

// Eql implements EQL(a, b); see internal/structeq for the algorithm.
func (m *Machine) Eql(eql term.Term) (term.Term, error) {
	m.Counts.Interaction()
	a := m.Heap.DerefCell(eql.Val())
	b := m.Heap.DerefCell(eql.Val() + 1)
	return structeq.Compare(m.Heap, m.Alloc, m.Force, a, b, m.CompareAnnotations)
}
