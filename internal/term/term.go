// Package term implements the 64-bit bit-packed term codec: pack/unpack of
// (tag, ext, val) triples plus the substitution sentinel bit. This is the
// only package that knows the bit layout; every other package goes through
// these accessors.
package term

// Term is a single 64-bit heap cell, or a standalone value when not stored
// in the heap (in which case the sub bit is always zero).
//
// Bit layout, high to low:
//
//	63      sub  (1 bit)  substitution sentinel
//	62..56  tag  (7 bits) term kind
//	55..32  ext  (24 bits) label / constructor id / primitive id
//	31..0   val  (32 bits) heap index or immediate payload
type Term uint64

const (
	subShift = 63
	subMask  = Term(1) << subShift

	tagShift = 56
	tagBits  = 7
	tagMask  = Term(1<<tagBits-1) << tagShift

	extShift = 32
	extBits  = 24
	extMask  = Term(1<<extBits-1) << extShift

	valBits = 32
	valMask = Term(1<<valBits - 1)
)

// Tag identifies the kind of a term.
type Tag uint8

const (
	Var Tag = iota // VAR: val = heap index of binder slot
	Lam            // LAM: val = index of (binder, body) pair
	App            // APP: val = index of (func, arg) pair
	Dup            // DUP: val = index of (binderX, binderY, shared-val, body) block; ext = label
	Co0            // first projection of a DUP; val = index of shared slot
	Co1            // second projection of a DUP; val = index of shared slot
	Sup            // SUP: val = index of (left, right) pair; ext = label
	Era            // ERA: val unused
	Num            // NUM: val = immediate 32-bit value

	// Constructors C00..C15: arity = tag - C00, val = index of an
	// arity-cell field block, ext = constructor id.
	C00
	C01
	C02
	C03
	C04
	C05
	C06
	C07
	C08
	C09
	C10
	C11
	C12
	C13
	C14
	C15

	// Primitives P00..P15: val = index of an arity-cell operand block,
	// ext = primitive id. Only P02 (binary) and P01 (unary, NOT) are
	// produced by this implementation; the remaining arities are reserved
	// tag space for future primitives.
	P00
	P01
	P02
	P03
	P04
	P05
	P06
	P07
	P08
	P09
	P10
	P11
	P12
	P13
	P14
	P15

	Mat // MAT: match on constructors; val = index of (scrutinee, branches)
	Swi // SWI: switch on numbers; val = index of (scrutinee, zero, succ)

	Ref // REF: val = index into the global function table
	Alo // ALO: allocated/unreduced reference, val = index into function table

	Red // RED: a pending reduction obligation; val = index of the term
	Use // USE: val = index of (forced term, continuation)
	Eql // EQL: structural equality; val = index of (a, b) pair

	// Stack-frame tags: these never appear in the heap. internal/reduce
	// keeps its work stack as its own frame records and does not use them.
	FApp
	FMat
	FSwi
	FOp2
	FUse

	// Optional type-system annotations, opaque to evaluation.
	Ann
	Typ
	All
	Sig
	Slf
	Bri
)

// CtorArity returns the arity of a constructor tag C00..C15.
func CtorArity(t Tag) int {
	return int(t - C00)
}

// IsCtor reports whether t is one of the C00..C15 constructor tags.
func IsCtor(t Tag) bool {
	return t >= C00 && t <= C15
}

// IsPrim reports whether t is one of the P00..P15 primitive tags.
func IsPrim(t Tag) bool {
	return t >= P00 && t <= P15
}

// Pack assembles a term from its fields. val and ext are truncated to their
// field widths; callers that need a larger range must split across cells.
func Pack(tag Tag, ext uint32, val uint32) Term {
	return Term(tag)<<tagShift&tagMask |
		Term(ext)<<extShift&extMask |
		Term(val)&valMask
}

// PackSub builds the forwarding term stored in a substituted cell: the sub
// bit set, carrying the forwarding term's own fields verbatim.
func PackSub(forward Term) Term {
	return forward | subMask
}

// Tag extracts the term kind.
func (t Term) Tag() Tag {
	return Tag((t & tagMask) >> tagShift)
}

// Ext extracts the label/constructor-id/primitive-id field.
func (t Term) Ext() uint32 {
	return uint32((t & extMask) >> extShift)
}

// Val extracts the heap-index-or-immediate field.
func (t Term) Val() uint32 {
	return uint32(t & valMask)
}

// IsSub reports whether this cell has been substituted; if so, the full
// term (including this bit) is the forwarding value.
func (t Term) IsSub() bool {
	return t&subMask != 0
}

// Forwarded strips the sub bit, returning the plain forwarding term.
func (t Term) Forwarded() Term {
	return t &^ subMask
}

// WithExt returns a copy of t with a new ext field.
func (t Term) WithExt(ext uint32) Term {
	return (t &^ extMask) | Term(ext)<<extShift&extMask
}

// WithVal returns a copy of t with a new val field.
func (t Term) WithVal(val uint32) Term {
	return (t &^ valMask) | Term(val)&valMask
}

// AutoDupLabelBase is the first label reserved for the auto-dup pass; user
// labels must stay below this.
const AutoDupLabelBase uint32 = 1 << 23

// IsAutoLabel reports whether a SUP/DUP label was generated by the auto-dup
// pass rather than written by the user.
func IsAutoLabel(label uint32) bool {
	return label >= AutoDupLabelBase
}
