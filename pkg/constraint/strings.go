package constraint

import (
	"fmt"

	"cfquery/pkg/cfg"
	"cfquery/pkg/invariants"
	"cfquery/pkg/xpr"
)

// StringConstraintKind classifies how far a string argument could be
// reduced.
type StringConstraintKind string

const (
	// KindLiteral: the argument reduces to a known string value.
	KindLiteral StringConstraintKind = "literal"
	// KindPrefix: a known prefix of the value was derived.
	KindPrefix StringConstraintKind = "prefix"
	// KindLengthBounded: only the value's length is bounded.
	KindLengthBounded StringConstraintKind = "length-bounded"
	// KindSymbolic: the argument has structure but no ground value.
	KindSymbolic StringConstraintKind = "symbolic"
	// KindUnconstrained: nothing could be derived. Reported
	// explicitly so callers can tell it apart from "no string
	// argument at all".
	KindUnconstrained StringConstraintKind = "unconstrained"
)

// StringConstraint describes the restrictions derivable for one
// string-typed argument of the terminating call, guarded by the path
// condition.
type StringConstraint struct {
	Call     string
	ArgIndex int
	Kind     StringConstraintKind
	Expr     *xpr.Expr // substituted argument expression
	Value    string    // literal value or known prefix
	MinLen   *int64
	MaxLen   *int64
	Guard    Condition
}

// String renders the constraint for table output.
func (sc *StringConstraint) String() string {
	head := fmt.Sprintf("%s arg%d", sc.Call, sc.ArgIndex)
	switch sc.Kind {
	case KindLiteral:
		return fmt.Sprintf("%s = %q if %s", head, sc.Value, sc.Guard)
	case KindPrefix:
		return fmt.Sprintf("%s startswith %q if %s", head, sc.Value, sc.Guard)
	case KindLengthBounded:
		lo, hi := "-inf", "+inf"
		if sc.MinLen != nil {
			lo = fmt.Sprintf("%d", *sc.MinLen)
		}
		if sc.MaxLen != nil {
			hi = fmt.Sprintf("%d", *sc.MaxLen)
		}
		return fmt.Sprintf("%s len in [%s, %s] if %s", head, lo, hi, sc.Guard)
	case KindSymbolic:
		return fmt.Sprintf("%s = %s if %s", head, sc.Expr, sc.Guard)
	default:
		return fmt.Sprintf("%s unconstrained if %s", head, sc.Guard)
	}
}

// deriveString builds the string constraint for the terminating call.
// Returns nil only when the call has no string-typed argument.
func (a *Accumulator) deriveString(cs cfg.CallSite, prov invariants.Provider, guard Condition) *StringConstraint {
	idx := a.stringArgIndex(cs)
	if idx < 0 {
		return nil
	}

	facts := prov.At(cs.BlockAddr)
	raw := cs.Args[idx].Expr
	sub := raw.Substitute(facts)

	sc := &StringConstraint{
		Call:     cs.Target.String(),
		ArgIndex: idx,
		Expr:     sub,
		Guard:    guard,
	}

	// A ground string constant after substitution is the strongest
	// outcome.
	if sub != nil && sub.Kind == xpr.KindStrConst {
		sc.Kind = KindLiteral
		sc.Value = sub.Str
		return sc
	}

	// Facts about the argument's root variable can still bound the
	// value even when substitution left it symbolic.
	if raw != nil && raw.Kind == xpr.KindVar {
		for _, f := range xpr.FactsFor(facts, raw.Name) {
			switch f.Kind {
			case xpr.FactStringPrefix:
				sc.Kind = KindPrefix
				sc.Value = f.Str
				return sc
			case xpr.FactInterval:
				// For a string-typed argument, an interval fact on
				// its variable bounds the value's length.
				sc.Kind = KindLengthBounded
				sc.MinLen = f.Lower
				sc.MaxLen = f.Upper
				return sc
			}
		}
	}

	// A bare variable or unknown carries no derivable structure.
	if sub == nil || sub.Kind == xpr.KindVar || sub.Kind == xpr.KindUnknown {
		sc.Kind = KindUnconstrained
		return sc
	}

	sc.Kind = KindSymbolic
	return sc
}
