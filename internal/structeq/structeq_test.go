package structeq

import (
	"testing"

	"hvm/internal/heap"
	"hvm/internal/term"
)

func forceIdentity(h *heap.Heap) Force {
	return func(t term.Term) term.Term { return h.Deref(t) }
}

func TestCompareEqualNums(t *testing.T) {
	h := heap.New(8, false)
	a := term.Pack(term.Num, 0, 42)
	b := term.Pack(term.Num, 0, 42)
	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 1 {
		t.Fatalf("Compare(42, 42) = %v, want NUM 1", got)
	}
}

func TestCompareUnequalNums(t *testing.T) {
	h := heap.New(8, false)
	a := term.Pack(term.Num, 0, 42)
	b := term.Pack(term.Num, 0, 7)
	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 0 {
		t.Fatalf("Compare(42, 7) = %v, want NUM 0", got)
	}
}

func TestCompareEra(t *testing.T) {
	h := heap.New(8, false)
	era := term.Pack(term.Era, 0, 0)
	num := term.Pack(term.Num, 0, 1)
	got, err := Compare(h, h.Alloc, forceIdentity(h), era, num, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Tag() != term.Era {
		t.Fatalf("Compare(ERA, 1) = %v, want ERA", got)
	}
}

func TestCompareLambdaNeverEqual(t *testing.T) {
	h := heap.New(8, false)
	lamBase, _ := h.Alloc(2)
	h.Set(lamBase, term.Pack(term.Var, 0, lamBase))
	h.Set(lamBase+1, term.Pack(term.Var, 0, lamBase))
	lam1 := term.Pack(term.Lam, 0, lamBase)
	lam2 := term.Pack(term.Lam, 0, lamBase)

	got, err := Compare(h, h.Alloc, forceIdentity(h), lam1, lam2, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 0 {
		t.Fatalf("Compare(lam, lam) = %v, want NUM 0 (never equal)", got)
	}
}

func TestCompareConstructorsEqual(t *testing.T) {
	h := heap.New(16, false)
	f0, _ := h.Alloc(2)
	h.Set(f0, term.Pack(term.Num, 0, 1))
	h.Set(f0+1, term.Pack(term.Num, 0, 2))
	a := term.Pack(term.C02, 9, f0)

	f1, _ := h.Alloc(2)
	h.Set(f1, term.Pack(term.Num, 0, 1))
	h.Set(f1+1, term.Pack(term.Num, 0, 2))
	b := term.Pack(term.C02, 9, f1)

	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 1 {
		t.Fatalf("Compare(ctor, ctor) = %v, want NUM 1", got)
	}
}

func TestCompareConstructorsDifferentId(t *testing.T) {
	h := heap.New(16, false)
	f0, _ := h.Alloc(1)
	h.Set(f0, term.Pack(term.Num, 0, 1))
	a := term.Pack(term.C01, 9, f0)

	f1, _ := h.Alloc(1)
	h.Set(f1, term.Pack(term.Num, 0, 1))
	b := term.Pack(term.C01, 10, f1)

	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 0 {
		t.Fatalf("Compare(ctor id 9, ctor id 10) = %v, want NUM 0", got)
	}
}

func TestCompareConstructorsDifferentField(t *testing.T) {
	h := heap.New(16, false)
	f0, _ := h.Alloc(1)
	h.Set(f0, term.Pack(term.Num, 0, 1))
	a := term.Pack(term.C01, 9, f0)

	f1, _ := h.Alloc(1)
	h.Set(f1, term.Pack(term.Num, 0, 2))
	b := term.Pack(term.C01, 9, f1)

	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 0 {
		t.Fatalf("Compare(ctor field 1, ctor field 2) = %v, want NUM 0", got)
	}
}

// eql(sup_0(#1,#2), #1) distributes to sup_0(eql(1,1), eql(2,1)) = sup_0(1,0).
func TestCompareDistributesOverSup(t *testing.T) {
	h := heap.New(32, false)
	supBase, _ := h.Alloc(2)
	h.Set(supBase, term.Pack(term.Num, 0, 1))
	h.Set(supBase+1, term.Pack(term.Num, 0, 2))
	sup := term.Pack(term.Sup, 0, supBase)
	other := term.Pack(term.Num, 0, 1)

	got, err := Compare(h, h.Alloc, forceIdentity(h), sup, other, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Tag() != term.Sup || got.Ext() != 0 {
		t.Fatalf("Compare(sup, 1) = %v, want SUP label 0", got)
	}
	leftEql := h.DerefCell(got.Val())
	rightEql := h.DerefCell(got.Val() + 1)
	if leftEql.Tag() != term.Eql || rightEql.Tag() != term.Eql {
		t.Fatalf("distributed fields = %v, %v, want unevaluated EQL pairs", leftEql, rightEql)
	}
}

// With compareAnnotations=false, ANN wrappers are opaque: two ANN terms over
// identical values but distinct type tags compare unequal by heap identity.
func TestCompareAnnotationsOpaqueByDefault(t *testing.T) {
	h := heap.New(16, false)
	valSlot, _ := h.Alloc(1)
	h.Set(valSlot, term.Pack(term.Num, 0, 5))
	a := term.Pack(term.Ann, 1, valSlot)
	b := term.Pack(term.Ann, 2, valSlot)

	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 0 {
		t.Fatalf("Compare(ann1, ann2) opaque = %v, want NUM 0 (distinct ext makes them unequal by identity)", got)
	}
}

// With compareAnnotations=true, ANN is unwrapped and the underlying values
// are compared structurally regardless of the type tag.
func TestCompareAnnotationsUnwrappedWhenEnabled(t *testing.T) {
	h := heap.New(16, false)
	valSlot, _ := h.Alloc(1)
	h.Set(valSlot, term.Pack(term.Num, 0, 5))
	a := term.Pack(term.Ann, 1, valSlot)
	b := term.Pack(term.Ann, 2, valSlot)

	got, err := Compare(h, h.Alloc, forceIdentity(h), a, b, true)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got.Val() != 1 {
		t.Fatalf("Compare(ann1, ann2) unwrapped = %v, want NUM 1", got)
	}
}
