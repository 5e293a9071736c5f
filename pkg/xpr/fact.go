package xpr

import (
	"fmt"
	"strings"
)

// FactKind discriminates invariant fact variants. The variants mirror
// the non-relational value forms produced by the upstream abstract
// interpreter: symbolic equalities, ground intervals, and known string
// content.
type FactKind string

const (
	FactSymbolic      FactKind = "symbolic"       // var equals a symbolic expression
	FactInterval      FactKind = "interval"       // var lies in [Lower, Upper]
	FactStringLiteral FactKind = "string_literal" // var holds a known string value
	FactStringPrefix  FactKind = "string_prefix"  // var's string value starts with Str
)

// Fact is a single value relation proven at a program point by the
// external analysis engine. Facts are read-only inputs.
type Fact struct {
	Kind  FactKind `json:"kind" msgpack:"kind"`
	Var   string   `json:"var" msgpack:"var"`
	Expr  *Expr    `json:"expr,omitempty" msgpack:"expr,omitempty"`
	Str   string   `json:"str,omitempty" msgpack:"str,omitempty"`
	Lower *int64   `json:"lower,omitempty" msgpack:"lower,omitempty"`
	Upper *int64   `json:"upper,omitempty" msgpack:"upper,omitempty"`
}

// SymbolicFact returns a fact stating that v equals e.
func SymbolicFact(v string, e *Expr) Fact {
	return Fact{Kind: FactSymbolic, Var: v, Expr: e}
}

// IntervalFact returns a fact bounding v to [lower, upper]. Either
// bound may be nil for a half-open interval.
func IntervalFact(v string, lower, upper *int64) Fact {
	return Fact{Kind: FactInterval, Var: v, Lower: lower, Upper: upper}
}

// StringLiteralFact returns a fact stating that v holds the string s.
func StringLiteralFact(v, s string) Fact {
	return Fact{Kind: FactStringLiteral, Var: v, Str: s}
}

// StringPrefixFact returns a fact stating that v's string value starts
// with prefix.
func StringPrefixFact(v, prefix string) Fact {
	return Fact{Kind: FactStringPrefix, Var: v, Str: prefix}
}

// String renders the fact in the analyzer's table notation.
func (f Fact) String() string {
	switch f.Kind {
	case FactSymbolic:
		return fmt.Sprintf("%s = %s", f.Var, f.Expr)
	case FactInterval:
		lo, hi := "-inf", "+inf"
		if f.Lower != nil {
			lo = fmt.Sprintf("%d", *f.Lower)
		}
		if f.Upper != nil {
			hi = fmt.Sprintf("%d", *f.Upper)
		}
		return fmt.Sprintf("%s in [%s, %s]", f.Var, lo, hi)
	case FactStringLiteral:
		return fmt.Sprintf("%s = %q", f.Var, f.Str)
	case FactStringPrefix:
		return fmt.Sprintf("%s startswith %q", f.Var, f.Str)
	default:
		return fmt.Sprintf("<bad fact kind %q>", f.Kind)
	}
}

// FactsFor filters facts down to those about the named variable.
func FactsFor(facts []Fact, v string) []Fact {
	var out []Fact
	for _, f := range facts {
		if f.Var == v {
			out = append(out, f)
		}
	}
	return out
}

// FormatFacts renders facts one per line for table presentation.
func FormatFacts(facts []Fact) string {
	parts := make([]string, len(facts))
	for i, f := range facts {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\n")
}
