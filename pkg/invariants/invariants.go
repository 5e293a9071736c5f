// Package invariants exposes the per-block value facts computed by
// the external abstract interpretation engine. This layer only reads
// them, for expression substitution during constraint accumulation.
package invariants

import (
	"cfquery/pkg/xpr"
)

// Provider answers invariant queries for one analyzed function.
// Implementations must be safe for concurrent readers.
type Provider interface {
	// At returns the value facts proven to hold on entry to the block
	// at the given address. The returned slice is read-only.
	At(blockAddr uint64) []xpr.Fact
}

// Table is a map-backed Provider, the standard implementation for
// facts loaded from an analysis artifact.
type Table struct {
	facts map[uint64][]xpr.Fact
}

// NewTable builds a Table from per-block fact lists. The map is used
// as-is and must not be mutated afterwards.
func NewTable(facts map[uint64][]xpr.Fact) *Table {
	return &Table{facts: facts}
}

// At implements Provider.
func (t *Table) At(blockAddr uint64) []xpr.Fact {
	if t == nil || t.facts == nil {
		return nil
	}
	return t.facts[blockAddr]
}

// None is a Provider with no facts, used when an artifact carries a
// CFG but no invariant data.
type None struct{}

// At implements Provider.
func (None) At(uint64) []xpr.Fact { return nil }
