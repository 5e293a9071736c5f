// Package target resolves caller-supplied target descriptions (a call
// target identifier or a block address) against a function's CFG, and
// carries the injected library-function summary table used later for
// string argument identification.
package target

import (
	"errors"
	"fmt"

	"cfquery/pkg/cfg"
)

// ErrUnknownTarget is returned when a call target identifier matches
// no call site anywhere in the CFG.
var ErrUnknownTarget = errors.New("unknown call target")

// ErrUnknownBlock is returned when a block target address is not a
// block of the CFG.
var ErrUnknownBlock = errors.New("unknown block")

// Kind discriminates the target variants.
type Kind string

const (
	KindCall  Kind = "call"
	KindBlock Kind = "block"
)

// Target is a resolved search target.
type Target struct {
	Kind       Kind
	Identifier string // call target name or hex address, KindCall only
	BlockAddr  uint64 // KindBlock only
}

// MatchesBlock reports whether arriving at the block satisfies a
// block target.
func (t Target) MatchesBlock(addr uint64) bool {
	return t.Kind == KindBlock && t.BlockAddr == addr
}

// MatchesCall reports whether the call site satisfies a call target.
func (t Target) MatchesCall(cs cfg.CallSite) bool {
	return t.Kind == KindCall && cs.Target.Matches(t.Identifier)
}

// String renders the target for logs and reports.
func (t Target) String() string {
	if t.Kind == KindBlock {
		return fmt.Sprintf("block %s", cfg.AddrString(t.BlockAddr))
	}
	return fmt.Sprintf("call %s", t.Identifier)
}

// Spec is an unresolved target description as supplied by the caller.
type Spec struct {
	Kind       Kind
	Identifier string
	BlockAddr  uint64
}

// CallSpec describes a call-target search by identifier.
func CallSpec(identifier string) Spec {
	return Spec{Kind: KindCall, Identifier: identifier}
}

// BlockSpec describes a block-target search by address.
func BlockSpec(addr uint64) Spec {
	return Spec{Kind: KindBlock, BlockAddr: addr}
}

// Resolver turns target specs into Targets. The summary table is
// injected at construction; there is no ambient global lookup.
type Resolver struct {
	summaries map[string]Summary
}

// NewResolver builds a Resolver over the given function summaries.
func NewResolver(summaries []Summary) *Resolver {
	m := make(map[string]Summary, len(summaries))
	for _, s := range summaries {
		m[s.Name] = s
	}
	return &Resolver{summaries: m}
}

// Resolve checks the spec against the graph. Resolution is purely
// syntactic: string and address equality, no fuzzy matching.
func (r *Resolver) Resolve(spec Spec, g *cfg.Graph) (Target, error) {
	switch spec.Kind {
	case KindCall:
		for _, cs := range g.CallSites() {
			if cs.Target.Matches(spec.Identifier) {
				return Target{Kind: KindCall, Identifier: spec.Identifier}, nil
			}
		}
		return Target{}, fmt.Errorf("%w: %q matches no call site in %s",
			ErrUnknownTarget, spec.Identifier, cfg.AddrString(g.FunctionAddr))
	case KindBlock:
		if g.Block(spec.BlockAddr) == nil {
			return Target{}, fmt.Errorf("%w: %s is not a block of %s",
				ErrUnknownBlock, cfg.AddrString(spec.BlockAddr), cfg.AddrString(g.FunctionAddr))
		}
		return Target{Kind: KindBlock, BlockAddr: spec.BlockAddr}, nil
	default:
		return Target{}, fmt.Errorf("%w: unrecognized target kind %q", ErrUnknownTarget, spec.Kind)
	}
}

// SummaryFor looks up the summary for a library function name.
func (r *Resolver) SummaryFor(name string) (Summary, bool) {
	s, ok := r.summaries[name]
	return s, ok
}
