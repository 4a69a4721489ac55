package collapse

import (
	"testing"

	"hvm/internal/heap"
	"hvm/internal/term"
)

func identity(t term.Term) term.Term { return t }

func num(n uint32) term.Term { return term.Pack(term.Num, 0, n) }

func sup(h *heap.Heap, label uint32, a, b term.Term) term.Term {
	base, _ := h.Alloc(2)
	h.Set(base, a)
	h.Set(base+1, b)
	return term.Pack(term.Sup, label, base)
}

// collapse_iter(&0{&0{#1,#2},&0{#3,#4}}) yields #1, #2, #3, #4 in order.
func TestCollapseNestedSupInOrder(t *testing.T) {
	h := heap.New(16, false)
	root := sup(h, 0, sup(h, 0, num(1), num(2)), sup(h, 0, num(3), num(4)))

	it := New(h, identity, root)
	got := Collect(it)
	want := []uint32{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Tag() != term.Num || got[i].Val() != w {
			t.Fatalf("result[%d] = %v, want NUM %d", i, got[i], w)
		}
	}
}

// A term with no SUP at all yields exactly itself.
func TestCollapseNoSupYieldsSingleResult(t *testing.T) {
	h := heap.New(4, false)
	it := New(h, identity, num(42))
	got := Collect(it)
	if len(got) != 1 || got[0].Val() != 42 {
		t.Fatalf("got %v, want single NUM 42", got)
	}
}

// An already-exhausted iterator keeps reporting ok=false.
func TestCollapseExhaustedStaysDone(t *testing.T) {
	h := heap.New(4, false)
	it := New(h, identity, num(1))
	if _, ok := it.Next(); !ok {
		t.Fatalf("expected first Next to succeed")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected second Next to report exhaustion")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected a further Next call to stay exhausted")
	}
}

// Force is applied to every frontier node, so a term that only becomes a
// SUP after reduction is still expanded correctly.
func TestCollapseForcesBeforeInspecting(t *testing.T) {
	h := heap.New(16, false)
	supTerm := sup(h, 0, num(5), num(6))
	// Wrap the real SUP behind a REF-like indirection that force resolves;
	// here we simulate "not yet WNF" with a custom force function.
	wrapper := term.Pack(term.Era, 0, 0) // placeholder shape, force replaces it
	force := func(x term.Term) term.Term {
		if x == wrapper {
			return supTerm
		}
		return x
	}
	it := New(h, force, wrapper)
	got := Collect(it)
	want := []uint32{5, 6}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	for i, w := range want {
		if got[i].Val() != w {
			t.Fatalf("result[%d] = %v, want NUM %d", i, got[i], w)
		}
	}
}

// A three-way-deep nesting still enumerates breadth-first, level by
// level, not a naive pre-order walk.
func TestCollapseDeeperNestingBreadthFirstOrder(t *testing.T) {
	h := heap.New(32, false)
	// &0{ &0{#1, #2}, #3 }, right branch already a leaf, left is a SUP.
	root := sup(h, 0, sup(h, 0, num(1), num(2)), num(3))
	it := New(h, identity, root)
	got := Collect(it)
	want := []uint32{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Val() != w {
			t.Fatalf("result[%d] = %v, want NUM %d", i, got[i], w)
		}
	}
}
