package batch

import (
	"math/rand"
	"testing"

	"hvm/internal/numeric"
)

func TestOpAdd(t *testing.T) {
	a := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []uint32{10, 20, 30, 40, 50, 60, 70, 80, 90}
	out := make([]uint32, len(a))
	if err := Op(numeric.Add, a, b, out); err != nil {
		t.Fatalf("Op: %v", err)
	}
	want := []uint32{11, 22, 33, 44, 55, 66, 77, 88, 99}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestOpRejectsUnary(t *testing.T) {
	a := []uint32{1}
	out := make([]uint32, 1)
	if err := Op(numeric.Not, a, a, out); err == nil {
		t.Fatalf("expected error for unary op passed to Op")
	}
}

func TestOpRejectsLengthMismatch(t *testing.T) {
	a := []uint32{1, 2}
	b := []uint32{1}
	out := make([]uint32, 2)
	if err := Op(numeric.Add, a, b, out); err == nil {
		t.Fatalf("expected error for mismatched lengths")
	}
}

func TestUnaryOpNot(t *testing.T) {
	a := []uint32{0, 0xFFFFFFFF, 1}
	out := make([]uint32, len(a))
	if err := UnaryOp(numeric.Not, a, out); err != nil {
		t.Fatalf("UnaryOp: %v", err)
	}
	want := []uint32{0xFFFFFFFF, 0, 0xFFFFFFFE}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %#x, want %#x", i, out[i], want[i])
		}
	}
}

// The batch engine result must be bit-identical to reducing each pair
// through the scalar primitive, for every lane-boundary-adjacent length.
func TestOpMatchesScalarAcrossLaneBoundaries(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 7, 8, 9, 15, 16, 17, 100} {
		a := make([]uint32, n)
		b := make([]uint32, n)
		for i := range a {
			a[i] = r.Uint32()
			b[i] = r.Uint32()
		}
		out := make([]uint32, n)
		if err := Op(numeric.Mul, a, b, out); err != nil {
			t.Fatalf("Op(n=%d): %v", n, err)
		}
		for i := range a {
			want := numeric.Binary(numeric.Mul, a[i], b[i])
			if out[i] != want {
				t.Fatalf("n=%d i=%d: out=%d want=%d", n, i, out[i], want)
			}
		}
	}
}

func TestParallelOpMatchesSerial(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	n := 1000
	a := make([]uint32, n)
	b := make([]uint32, n)
	for i := range a {
		a[i] = r.Uint32()
		b[i] = r.Uint32()
	}

	serial := make([]uint32, n)
	if err := Op(numeric.Xor, a, b, serial); err != nil {
		t.Fatalf("Op: %v", err)
	}

	parallel := make([]uint32, n)
	pool := NewPool(4)
	if err := pool.RunBinary(numeric.Xor, a, b, parallel); err != nil {
		t.Fatalf("RunBinary: %v", err)
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("i=%d: serial=%d parallel=%d", i, serial[i], parallel[i])
		}
	}
}

func TestParallelOpMoreWorkersThanElements(t *testing.T) {
	a := []uint32{1, 2, 3}
	b := []uint32{4, 5, 6}
	out := make([]uint32, 3)
	pool := NewPool(16)
	if err := pool.RunBinary(numeric.Add, a, b, out); err != nil {
		t.Fatalf("RunBinary: %v", err)
	}
	want := []uint32{5, 7, 9}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestParallelUnaryOpMatchesSerial(t *testing.T) {
	a := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	serial := make([]uint32, len(a))
	if err := UnaryOp(numeric.Not, a, serial); err != nil {
		t.Fatalf("UnaryOp: %v", err)
	}
	parallel := make([]uint32, len(a))
	pool := NewPool(3)
	if err := pool.RunUnary(numeric.Not, a, parallel); err != nil {
		t.Fatalf("RunUnary: %v", err)
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("i=%d: serial=%d parallel=%d", i, serial[i], parallel[i])
		}
	}
}
