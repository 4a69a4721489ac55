// Package batch implements the array-of-NUM fast path: given two
// equal-length uint32 arrays and a primitive id, compute the result
// directly without building any heap terms or touching the reducer at
// all. Op processes eight lanes per loop iteration; Pool.RunBinary
// additionally partitions the arrays across a worker pool for large
// inputs.
package batch

import (
	"hvm/internal/numeric"
	"hvm/internal/rterr"
)

const lanes = 8

// Op computes out[i] = numeric.Binary(op, a[i], b[i]) for every lane, eight
// at a time. a, b and out must have equal, matching lengths.
func Op(op numeric.Op, a, b, out []uint32) error {
	if !numeric.Valid(op) || numeric.IsUnary(op) {
		return rterr.New(rterr.UnknownPrimitive, "batch op requires a binary primitive, got id %d", op)
	}
	if len(a) != len(b) || len(a) != len(out) {
		return rterr.New(rterr.UnknownTag, "batch op operand/output length mismatch: len(a)=%d len(b)=%d len(out)=%d", len(a), len(b), len(out))
	}
	runBinary(op, a, b, out)
	return nil
}

// UnaryOp computes out[i] = numeric.Unary(NOT, a[i]) for every lane.
func UnaryOp(op numeric.Op, a, out []uint32) error {
	if !numeric.IsUnary(op) {
		return rterr.New(rterr.UnknownPrimitive, "batch unary op requires NOT, got id %d", op)
	}
	if len(a) != len(out) {
		return rterr.New(rterr.UnknownTag, "batch unary op operand/output length mismatch: len(a)=%d len(out)=%d", len(a), len(out))
	}
	for i := range a {
		out[i] = numeric.Unary(op, a[i])
	}
	return nil
}

// runBinary evaluates a slice in lanes-wide strides, then finishes any
// remainder below a full stride. Correctness is identical to a plain
// element-wise loop; the unrolled stride approximates vector operations
// on top of Go's lack of portable SIMD intrinsics.
func runBinary(op numeric.Op, a, b, out []uint32) {
	n := len(a)
	i := 0
	for ; i+lanes <= n; i += lanes {
		out[i+0] = numeric.Binary(op, a[i+0], b[i+0])
		out[i+1] = numeric.Binary(op, a[i+1], b[i+1])
		out[i+2] = numeric.Binary(op, a[i+2], b[i+2])
		out[i+3] = numeric.Binary(op, a[i+3], b[i+3])
		out[i+4] = numeric.Binary(op, a[i+4], b[i+4])
		out[i+5] = numeric.Binary(op, a[i+5], b[i+5])
		out[i+6] = numeric.Binary(op, a[i+6], b[i+6])
		out[i+7] = numeric.Binary(op, a[i+7], b[i+7])
	}
	for ; i < n; i++ {
		out[i] = numeric.Binary(op, a[i], b[i])
	}
}
