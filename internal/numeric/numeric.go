// Package numeric implements the seventeen numeric primitives of spec
// §4.5: modular 32-bit unsigned arithmetic, masked shifts, and boolean
// comparisons, shared between the scalar reducer path (internal/interact)
// and the vectorised batch path (internal/batch).
package numeric

import "golang.org/x/exp/constraints"

// Op identifies a primitive operation. Binary ops other than NOT read two
// NUM operands; NOT is unary.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Lsh
	Rsh
	Not
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

// IsUnary reports whether op takes one operand.
func IsUnary(op Op) bool {
	return op == Not
}

// boolNum converts a Go bool into the runtime's NUM encoding of
// true/false (1/0): comparison primitives return NUM 1 for true, NUM 0
// for false.
func boolNum(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// mask32 masks a shift amount of any unsigned integer width to the low 5
// bits. internal/batch reaches it only through Binary.
func mask32[T constraints.Unsigned](shift T) uint32 {
	return uint32(shift) & 31
}

// Binary evaluates a binary primitive over two 32-bit immediates. Division
// and modulo by zero return zero rather than trapping.
func Binary(op Op, a, b uint32) uint32 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		if b == 0 {
			return 0
		}
		return a / b
	case Mod:
		if b == 0 {
			return 0
		}
		return a % b
	case And:
		return a & b
	case Or:
		return a | b
	case Xor:
		return a ^ b
	case Lsh:
		return a << mask32(b)
	case Rsh:
		return a >> mask32(b)
	case Eq:
		return boolNum(a == b)
	case Ne:
		return boolNum(a != b)
	case Lt:
		return boolNum(a < b)
	case Le:
		return boolNum(a <= b)
	case Gt:
		return boolNum(a > b)
	case Ge:
		return boolNum(a >= b)
	default:
		// Not is unary and has no place here; UnknownPrimitive is raised by
		// the caller (internal/interact), which knows the term that named
		// this op and can report a useful location.
		return 0
	}
}

// Unary evaluates NOT, the sole unary primitive: bitwise complement of the
// 32-bit immediate.
func Unary(op Op, a uint32) uint32 {
	if op == Not {
		return ^a
	}
	return 0
}

// Valid reports whether op names a defined primitive.
func Valid(op Op) bool {
	return op <= Ge
}
