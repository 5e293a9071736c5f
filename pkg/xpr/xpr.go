// Package xpr defines the symbolic expression trees used for branch
// predicates, call arguments, and invariant facts. Expressions are
// immutable tagged-variant trees: substitution produces a new tree and
// never mutates the receiver.
package xpr

import (
	"fmt"
	"strings"
)

// Kind discriminates the expression variants.
type Kind string

const (
	KindIntConst Kind = "int"     // integer literal
	KindStrConst Kind = "str"     // string literal
	KindVar      Kind = "var"     // register or stack variable reference
	KindUnary    Kind = "unary"   // unary operation over Args[0]
	KindBinary   Kind = "binary"  // binary operation over Args[0], Args[1]
	KindUnknown  Kind = "unknown" // value the analysis could not resolve
)

// Op is an operator for unary and binary expressions.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpAnd Op = "&&"
	OpOr  Op = "||"
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
	OpNot Op = "!"
	OpNeg Op = "neg"
)

// Expr is a node in a symbolic expression tree. Exactly the fields
// relevant for the node's Kind are populated.
type Expr struct {
	Kind Kind    `json:"kind" msgpack:"kind"`
	Op   Op      `json:"op,omitempty" msgpack:"op,omitempty"`
	Int  int64   `json:"int,omitempty" msgpack:"int,omitempty"`
	Str  string  `json:"str,omitempty" msgpack:"str,omitempty"`
	Name string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Args []*Expr `json:"args,omitempty" msgpack:"args,omitempty"`
}

// Int returns an integer constant expression.
func Int(v int64) *Expr {
	return &Expr{Kind: KindIntConst, Int: v}
}

// Str returns a string constant expression.
func Str(s string) *Expr {
	return &Expr{Kind: KindStrConst, Str: s}
}

// Var returns a variable reference expression.
func Var(name string) *Expr {
	return &Expr{Kind: KindVar, Name: name}
}

// Unary returns a unary operation expression.
func Unary(op Op, x *Expr) *Expr {
	return &Expr{Kind: KindUnary, Op: op, Args: []*Expr{x}}
}

// Binary returns a binary operation expression.
func Binary(op Op, x, y *Expr) *Expr {
	return &Expr{Kind: KindBinary, Op: op, Args: []*Expr{x, y}}
}

// Unknown returns an unresolved value. The hint, when present, names
// the origin (e.g. the instruction that produced it).
func Unknown(hint string) *Expr {
	return &Expr{Kind: KindUnknown, Name: hint}
}

// String renders the expression in infix notation.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindIntConst:
		return fmt.Sprintf("%d", e.Int)
	case KindStrConst:
		return fmt.Sprintf("%q", e.Str)
	case KindVar:
		return e.Name
	case KindUnary:
		if e.Op == OpNeg {
			return fmt.Sprintf("-(%s)", e.Args[0])
		}
		return fmt.Sprintf("%s(%s)", e.Op, e.Args[0])
	case KindBinary:
		return fmt.Sprintf("(%s %s %s)", e.Args[0], e.Op, e.Args[1])
	case KindUnknown:
		if e.Name != "" {
			return fmt.Sprintf("?%s", e.Name)
		}
		return "?"
	default:
		return fmt.Sprintf("<bad kind %q>", e.Kind)
	}
}

// Equal reports structural equality of two expressions.
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind || e.Op != o.Op || e.Int != o.Int ||
		e.Str != o.Str || e.Name != o.Name || len(e.Args) != len(o.Args) {
		return false
	}
	for i := range e.Args {
		if !e.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// IsGround reports whether the expression contains no variable
// references and no unknowns, i.e. it reduces to a constant value.
func (e *Expr) IsGround() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindVar, KindUnknown:
		return false
	}
	for _, a := range e.Args {
		if !a.IsGround() {
			return false
		}
	}
	return true
}

// Vars returns the variable names referenced by the expression, in
// first-occurrence order without duplicates.
func (e *Expr) Vars() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(x *Expr)
	walk = func(x *Expr) {
		if x == nil {
			return
		}
		if x.Kind == KindVar && !seen[x.Name] {
			seen[x.Name] = true
			names = append(names, x.Name)
		}
		for _, a := range x.Args {
			walk(a)
		}
	}
	walk(e)
	return names
}

// Substitute rewrites the expression by replacing variable references
// for which a fact supplies a value. Variables without a matching fact
// stay symbolic. The receiver is not modified.
func (e *Expr) Substitute(facts []Fact) *Expr {
	if e == nil {
		return nil
	}
	if e.Kind == KindVar {
		for _, f := range facts {
			if f.Var != e.Name {
				continue
			}
			switch f.Kind {
			case FactSymbolic:
				if f.Expr != nil {
					return f.Expr
				}
			case FactStringLiteral:
				return Str(f.Str)
			}
		}
		return e
	}
	if len(e.Args) == 0 {
		return e
	}
	args := make([]*Expr, len(e.Args))
	changed := false
	for i, a := range e.Args {
		args[i] = a.Substitute(facts)
		if args[i] != a {
			changed = true
		}
	}
	if !changed {
		return e
	}
	out := *e
	out.Args = args
	return &out
}

// Conjoin renders a slice of expressions as a conjunction, used for
// human-readable path conditions.
func Conjoin(exprs []*Expr) string {
	if len(exprs) == 0 {
		return "true"
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, " && ")
}
