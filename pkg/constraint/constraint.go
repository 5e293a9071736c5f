// Package constraint folds a found path into its path condition,
// annotates its calls with invariant-substituted arguments, and
// derives a string constraint for the terminating call when it has a
// string-typed argument. Substitution is a structural rewrite using
// the facts valid at each block; nothing is solved.
package constraint

import (
	"cfquery/pkg/cfg"
	"cfquery/pkg/invariants"
	"cfquery/pkg/search"
	"cfquery/pkg/target"
	"cfquery/pkg/xpr"
)

// Condition is the ordered conjunction of the predicates on the
// conditional edges a path took. Evaluation order is path order.
type Condition struct {
	Terms []*xpr.Expr
}

// String renders the condition; an empty conjunction is "true".
func (c Condition) String() string {
	return xpr.Conjoin(c.Terms)
}

// AnnotatedCall is a call site with its arguments resolved as far as
// the invariants at its block allow.
type AnnotatedCall struct {
	Site cfg.CallSite
	Args []*xpr.Expr
}

// Accumulated is the result of folding one path.
type Accumulated struct {
	Condition Condition
	Calls     []AnnotatedCall

	// StringConstraint is nil when the terminating call has no
	// string-typed argument (or the path terminated at a block, not a
	// call). A string argument that could not be bounded is reported
	// with KindUnconstrained, never as a nil constraint.
	StringConstraint *StringConstraint
}

// Accumulator derives conditions and constraints. The resolver
// supplies library-function summaries for string argument positions.
type Accumulator struct {
	resolver *target.Resolver
}

// New returns an Accumulator using the given resolver's summaries.
func New(r *target.Resolver) *Accumulator {
	return &Accumulator{resolver: r}
}

// Accumulate folds the path: the ordered condition from taken
// conditional edges, each call annotated with substituted arguments,
// and a string constraint for the terminating call if applicable.
func (a *Accumulator) Accumulate(path search.Path, prov invariants.Provider) Accumulated {
	acc := Accumulated{}

	for _, e := range path.Edges {
		if e.Predicate != nil {
			acc.Condition.Terms = append(acc.Condition.Terms, e.Predicate)
		}
	}

	for _, cs := range path.Calls {
		facts := prov.At(cs.BlockAddr)
		args := make([]*xpr.Expr, len(cs.Args))
		for i, arg := range cs.Args {
			args[i] = arg.Expr.Substitute(facts)
		}
		acc.Calls = append(acc.Calls, AnnotatedCall{Site: cs, Args: args})
	}

	if path.TargetCall != nil {
		acc.StringConstraint = a.deriveString(*path.TargetCall, prov, acc.Condition)
	}

	return acc
}

// stringArgIndex returns the first string-typed argument position of
// the call, using the argument type tags and, failing that, the
// injected function summary. Returns -1 when the call has none.
func (a *Accumulator) stringArgIndex(cs cfg.CallSite) int {
	for i, arg := range cs.Args {
		if arg.Type == cfg.ArgString {
			return i
		}
	}
	if sum, ok := a.resolver.SummaryFor(cs.Target.Name); ok {
		for i := range cs.Args {
			if sum.IsStringArg(i) {
				return i
			}
		}
	}
	return -1
}
