package interact

import (
	"testing"

	"hvm/internal/heap"
	"hvm/internal/numeric"
	"hvm/internal/stats"
	"hvm/internal/term"
)

func newMachine(t *testing.T, cells int) (*Machine, *heap.Heap) {
	t.Helper()
	h := heap.New(cells, false)
	m := &Machine{
		Heap:   h,
		Alloc:  h.Alloc,
		Counts: &stats.Counters{},
		Force:  func(x term.Term) term.Term { return h.Deref(x) },
	}
	return m, h
}

// ((\x.x) #7) -> #7
func TestBetaIdentity(t *testing.T) {
	m, h := newMachine(t, 16)
	lamBase, _ := h.Alloc(2)
	h.Set(lamBase, term.Pack(term.Var, 0, lamBase)) // binder self-sentinel
	h.Set(lamBase+1, term.Pack(term.Var, 0, lamBase)) // body = x
	lam := term.Pack(term.Lam, 0, lamBase)
	arg := term.Pack(term.Num, 0, 7)

	result := m.Beta(lam, arg)
	// result is the lambda's body, a VAR referencing the binder cell;
	// dereferencing that cell must now yield the substituted argument.
	got := h.DerefCell(result.Val())
	if got != arg {
		t.Fatalf("Beta result = %v, want %v", got, arg)
	}
}

func TestAppEra(t *testing.T) {
	m, _ := newMachine(t, 4)
	if got := m.AppEra(); got.Tag() != term.Era {
		t.Fatalf("AppEra = %v, want ERA", got)
	}
}

// !&0{a,b}=&0{#1,#2}; (+ a b) -> #3 (annihilate, same label)
func TestDupSupAnnihilateSameLabel(t *testing.T) {
	m, h := newMachine(t, 16)
	supBase, _ := h.Alloc(2)
	h.Set(supBase, term.Pack(term.Num, 0, 1))
	h.Set(supBase+1, term.Pack(term.Num, 0, 2))
	sup := term.Pack(term.Sup, 0, supBase)

	co0 := term.Pack(term.Co0, 0, supBase) // same label 0
	co1 := term.Pack(term.Co1, 0, supBase)

	a := m.DupSupAnnihilate(co0, sup)
	b := m.DupSupAnnihilate(co1, sup)
	if a.Val() != 1 || b.Val() != 2 {
		t.Fatalf("annihilate: a=%v b=%v, want 1,2", a, b)
	}
	sum := numeric.Binary(numeric.Add, a.Val(), b.Val())
	if sum != 3 {
		t.Fatalf("sum = %d, want 3", sum)
	}
}

// !&0{a,b}=&1{#1,#2}; (+ a b) -> &1{#2,#4} (commute, different labels)
func TestDupSupCommuteDifferentLabel(t *testing.T) {
	m, h := newMachine(t, 32)
	supBase, _ := h.Alloc(2)
	h.Set(supBase, term.Pack(term.Num, 0, 1))
	h.Set(supBase+1, term.Pack(term.Num, 0, 2))
	sup := term.Pack(term.Sup, 1, supBase) // label 1

	slot, _ := h.Alloc(1)
	h.Set(slot, sup)
	co0 := term.Pack(term.Co0, 0, slot) // dup label 0, different from sup label 1

	result, err := m.DupSupCommute(co0, sup)
	if err != nil {
		t.Fatalf("DupSupCommute: %v", err)
	}
	if result.Tag() != term.Sup || result.Ext() != 1 {
		t.Fatalf("commute result = %v, want SUP label 1", result)
	}
	// The fields of the pushed-down sup are themselves fresh CO0 dup
	// redexes (dup label 0) over the original sup's two fields; one more
	// reduction step each would resolve them to #1 and #2.
	leftCo := h.DerefCell(result.Val())
	rightCo := h.DerefCell(result.Val() + 1)
	if leftCo.Tag() != term.Co0 || leftCo.Ext() != 0 || rightCo.Tag() != term.Co0 || rightCo.Ext() != 0 {
		t.Fatalf("commute fields = %v, %v, want CO0 dup-label-0 redexes", leftCo, rightCo)
	}
	if got := h.DerefCell(leftCo.Val()); got.Val() != 1 {
		t.Fatalf("left field target = %v, want #1", got)
	}
	if got := h.DerefCell(rightCo.Val()); got.Val() != 2 {
		t.Fatalf("right field target = %v, want #2", got)
	}

	// The other projection must independently resolve through the now
	// published shared slot via plain annihilate.
	sharedNow := h.DerefCell(slot)
	if sharedNow.Tag() != term.Sup || sharedNow.Ext() != 0 {
		t.Fatalf("shared slot after commute = %v, want SUP label 0 (dup label)", sharedNow)
	}
}

func TestDupNum(t *testing.T) {
	m, h := newMachine(t, 8)
	slot, _ := h.Alloc(1)
	num := term.Pack(term.Num, 0, 99)
	h.Set(slot, num)
	co := term.Pack(term.Co0, 5, slot)
	got := m.DupNum(co, num)
	if got != num {
		t.Fatalf("DupNum = %v, want %v", got, num)
	}
}

func TestDupEra(t *testing.T) {
	m, h := newMachine(t, 8)
	slot, _ := h.Alloc(1)
	co := term.Pack(term.Co1, 0, slot)
	got := m.DupEra(co)
	if got.Tag() != term.Era {
		t.Fatalf("DupEra = %v, want ERA", got)
	}
}

func TestDupCtor(t *testing.T) {
	m, h := newMachine(t, 32)
	fieldsBase, _ := h.Alloc(2)
	h.Set(fieldsBase, term.Pack(term.Num, 0, 10))
	h.Set(fieldsBase+1, term.Pack(term.Num, 0, 20))
	ctor := term.Pack(term.C02, 7, fieldsBase) // ctor id 7, arity 2

	slot, _ := h.Alloc(1)
	h.Set(slot, ctor)
	co0 := term.Pack(term.Co0, 3, slot)

	result, err := m.DupCtor(co0, ctor)
	if err != nil {
		t.Fatalf("DupCtor: %v", err)
	}
	if result.Tag() != term.C02 || result.Ext() != 7 {
		t.Fatalf("DupCtor result = %v, want C02 id 7", result)
	}
	f0 := h.DerefCell(result.Val())
	f1 := h.DerefCell(result.Val() + 1)
	if f0.Tag() != term.Co0 || f1.Tag() != term.Co0 {
		t.Fatalf("duplicated fields should be Co0 projections for the Co0 request: %v %v", f0, f1)
	}
}

// (* (+ #2 #3) (- #10 #4)) -> #30
func TestPrimNum(t *testing.T) {
	m, _ := newMachine(t, 4)
	addPrim := term.Pack(term.P02, uint32(numeric.Add), 0)
	subPrim := term.Pack(term.P02, uint32(numeric.Sub), 0)
	mulPrim := term.Pack(term.P02, uint32(numeric.Mul), 0)

	left, err := m.PrimNum(addPrim, term.Pack(term.Num, 0, 2), term.Pack(term.Num, 0, 3))
	if err != nil {
		t.Fatalf("PrimNum add: %v", err)
	}
	right, err := m.PrimNum(subPrim, term.Pack(term.Num, 0, 10), term.Pack(term.Num, 0, 4))
	if err != nil {
		t.Fatalf("PrimNum sub: %v", err)
	}
	result, err := m.PrimNum(mulPrim, left, right)
	if err != nil {
		t.Fatalf("PrimNum mul: %v", err)
	}
	if result.Val() != 30 {
		t.Fatalf("result = %d, want 30", result.Val())
	}
}

func TestPrimNumUnknownOp(t *testing.T) {
	m, _ := newMachine(t, 4)
	bogus := term.Pack(term.P02, 200, 0)
	if _, err := m.PrimNum(bogus, term.Pack(term.Num, 0, 1), term.Pack(term.Num, 0, 2)); err == nil {
		t.Fatalf("expected UnknownPrimitive error")
	}
}

// (=== #42 #42) -> #1; (=== #42 #7) -> #0
func TestEql(t *testing.T) {
	m, h := newMachine(t, 16)

	base, _ := h.Alloc(2)
	h.Set(base, term.Pack(term.Num, 0, 42))
	h.Set(base+1, term.Pack(term.Num, 0, 42))
	eql := term.Pack(term.Eql, 0, base)
	result, err := m.Eql(eql)
	if err != nil {
		t.Fatalf("Eql: %v", err)
	}
	if result.Val() != 1 {
		t.Fatalf("(=== 42 42) = %v, want NUM 1", result)
	}

	base2, _ := h.Alloc(2)
	h.Set(base2, term.Pack(term.Num, 0, 42))
	h.Set(base2+1, term.Pack(term.Num, 0, 7))
	eql2 := term.Pack(term.Eql, 0, base2)
	result2, err := m.Eql(eql2)
	if err != nil {
		t.Fatalf("Eql: %v", err)
	}
	if result2.Val() != 0 {
		t.Fatalf("(=== 42 7) = %v, want NUM 0", result2)
	}
}

func TestSwitchNum(t *testing.T) {
	m, h := newMachine(t, 16)
	zeroBranch := term.Pack(term.Num, 0, 111)
	succFn := term.Pack(term.Var, 0, 0) // placeholder function term

	base, _ := h.Alloc(3)
	h.Set(base, term.Pack(term.Num, 0, 0))
	h.Set(base+1, zeroBranch)
	h.Set(base+2, succFn)
	swi := term.Pack(term.Swi, 0, base)

	result, err := m.SwitchNum(swi, term.Pack(term.Num, 0, 0))
	if err != nil {
		t.Fatalf("SwitchNum: %v", err)
	}
	if result != zeroBranch {
		t.Fatalf("SwitchNum(0) = %v, want zero branch %v", result, zeroBranch)
	}

	result2, err := m.SwitchNum(swi, term.Pack(term.Num, 0, 5))
	if err != nil {
		t.Fatalf("SwitchNum: %v", err)
	}
	if result2.Tag() != term.App {
		t.Fatalf("SwitchNum(5) = %v, want APP(succBranch, #4)", result2)
	}
	arg := h.DerefCell(result2.Val() + 1)
	if arg.Val() != 4 {
		t.Fatalf("SwitchNum(5) arg = %v, want #4", arg)
	}
}

func TestMatchCtor(t *testing.T) {
	m, h := newMachine(t, 16)
	// Two branches: branch 0 (nullary ctor), branch 1 (unary ctor).
	branch0 := term.Pack(term.Num, 0, 1)
	branch1 := term.Pack(term.Var, 0, 0) // placeholder function

	matBase, _ := h.Alloc(3) // scrutinee, branch0, branch1
	h.Set(matBase, 0)
	h.Set(matBase+1, branch0)
	h.Set(matBase+2, branch1)
	mat := term.Pack(term.Mat, 2, matBase) // 2 branches

	fieldsBase, _ := h.Alloc(1)
	h.Set(fieldsBase, term.Pack(term.Num, 0, 9))
	ctor := term.Pack(term.C01, 1, fieldsBase) // selects branch 1, arity 1

	result, err := m.MatchCtor(mat, ctor)
	if err != nil {
		t.Fatalf("MatchCtor: %v", err)
	}
	if result.Tag() != term.App {
		t.Fatalf("MatchCtor result = %v, want APP(branch1, field0)", result)
	}
	fn := h.DerefCell(result.Val())
	arg := h.DerefCell(result.Val() + 1)
	if fn != branch1 || arg.Val() != 9 {
		t.Fatalf("MatchCtor app = (%v, %v), want (%v, #9)", fn, arg, branch1)
	}
}
