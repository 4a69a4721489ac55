// Package rterr defines the runtime's typed error kinds: a kind enum plus
// structured fields and a formatted Error() string, returned as values
// rather than panicked.
package rterr

import "fmt"

// Kind identifies one of the runtime's error categories.
type Kind string

const (
	// HeapExhausted: the allocator could not satisfy a request. Fatal to
	// the current reduction; the caller should reset or grow the heap.
	HeapExhausted Kind = "HeapExhausted"
	// StackOverflow: the reducer's frame stack is full. Fatal to the
	// current reduction.
	StackOverflow Kind = "StackOverflow"
	// ParseError surfaces from the (external, or reference internal/surface)
	// parser; the core is never entered for it.
	ParseError Kind = "ParseError"
	// CommutationLimitExceeded is advisory only: a flag is set, but
	// reduction continues unless the host aborts.
	CommutationLimitExceeded Kind = "CommutationLimitExceeded"
	// UnknownPrimitive indicates a malformed heap: a P-tag ext field with
	// no corresponding primitive. Fatal.
	UnknownPrimitive Kind = "UnknownPrimitive"
	// UnknownTag indicates a malformed heap: a tag value outside the
	// defined term.Tag range, or a stack-frame tag found in the heap
	// proper. Fatal.
	UnknownTag Kind = "UnknownTag"
)

// Error is the runtime's error value: a kind plus a formatted message.
// Advisory kinds (CommutationLimitExceeded) are still returned as *Error
// values so a host can log.Printf(err) them, but the reducer's own control
// flow does not abort on them, see internal/reduce.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind, for use with
// errors.Is-style call sites that only care about the category.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// Fatal reports whether a Kind halts the current reduction. Only
// CommutationLimitExceeded is advisory.
func Fatal(kind Kind) bool {
	return kind != CommutationLimitExceeded
}
