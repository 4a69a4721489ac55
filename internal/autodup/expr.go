// Package autodup implements the pre-evaluation auto-dup pass: a source
// term may reference a bound variable more than once (the usual
// surface-syntax freedom), but the interaction calculus itself is affine,
// every bound variable must be used at most once, with explicit DUP nodes
// threading shared access. Insert walks a parsed Expr tree bottom-up and
// rewrites every multiply-referenced binder into a chain of DUPs over
// fresh, auto-generated labels, shifting De Bruijn indices outward as it
// goes. Build then lowers the resulting (already affine) Expr into heap
// cells.
package autodup

import "hvm/internal/numeric"

// Expr is the small source-level IR internal/surface's parser builds and
// this package's Insert pass rewrites before internal/surface (or any
// other front end) lowers it to heap cells via Build. Variables are De
// Bruijn indices: 0 is the nearest enclosing binder.
type Expr interface {
	isExpr()
}

type Var struct{ Index int }
type Lam struct{ Body Expr }
type App struct{ Fun, Arg Expr }
type SupE struct {
	Label       uint32
	Left, Right Expr
}

// DupE is a user-written `!&L{x,y}=v;k`: two binders (x at index 0, y at
// index 1 within Body) introduced simultaneously.
type DupE struct {
	Label uint32
	Value Expr
	Body  Expr
}
type NumE struct{ Val uint32 }
type EraE struct{}

// CtorE is a constructor application; arity = len(Fields), id = ID.
type CtorE struct {
	ID     uint32
	Fields []Expr
}

// MatE matches a constructor scrutinee against len(Branches) arms; branch
// i is a curried Lam of arity equal to constructor i's field count (so
// ordinary De Bruijn recursion through Lam handles its binders with no
// special case here).
type MatE struct {
	Scrutinee Expr
	Branches  []Expr
}

// SwiE switches on a NUM scrutinee: Zero is a plain expression, Succ is a
// one-argument Lam receiving n-1.
type SwiE struct {
	Scrutinee, Zero, Succ Expr
}

type PrimE struct {
	Op   numeric.Op
	Args []Expr // one operand for Op == numeric.Not, two otherwise
}

type EqlE struct{ A, B Expr }

// AnnE is `{t : T}`, opaque to evaluation.
type AnnE struct{ Value, Type Expr }

// RefE names a top-level definition by index into the host's def table.
type RefE struct{ ID uint32 }

func (*Var) isExpr()   {}
func (*Lam) isExpr()   {}
func (*App) isExpr()   {}
func (*SupE) isExpr()  {}
func (*DupE) isExpr()  {}
func (*NumE) isExpr()  {}
func (*EraE) isExpr()  {}
func (*CtorE) isExpr() {}
func (*MatE) isExpr()  {}
func (*SwiE) isExpr()  {}
func (*PrimE) isExpr() {}
func (*EqlE) isExpr()  {}
func (*AnnE) isExpr()  {}
func (*RefE) isExpr()  {}
