package cfg

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph marks a structural defect in a supplied CFG. It is
// fatal: it indicates a bug in the upstream disassembly or analysis
// stage, not a condition to retry.
var ErrInvalidGraph = errors.New("invalid control flow graph")

// Validate checks the structural invariants the search engine relies
// on: the entry block exists, every edge endpoint is a known block,
// and every call site lives in the block that claims it.
func (g *Graph) Validate() error {
	if g == nil || len(g.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrInvalidGraph)
	}
	if _, ok := g.Blocks[g.Entry]; !ok {
		return fmt.Errorf("%w: entry block %s not in block map", ErrInvalidGraph, AddrString(g.Entry))
	}
	for _, e := range g.Edges {
		if _, ok := g.Blocks[e.From]; !ok {
			return fmt.Errorf("%w: edge %s -> %s references unknown source block",
				ErrInvalidGraph, AddrString(e.From), AddrString(e.To))
		}
		if _, ok := g.Blocks[e.To]; !ok {
			return fmt.Errorf("%w: edge %s -> %s references unknown destination block",
				ErrInvalidGraph, AddrString(e.From), AddrString(e.To))
		}
	}
	for addr, b := range g.Blocks {
		if b == nil {
			return fmt.Errorf("%w: nil block at %s", ErrInvalidGraph, AddrString(addr))
		}
		if b.Addr != addr {
			return fmt.Errorf("%w: block keyed %s has address %s",
				ErrInvalidGraph, AddrString(addr), AddrString(b.Addr))
		}
		for _, cs := range b.Calls {
			if cs.BlockAddr != addr {
				return fmt.Errorf("%w: call site at %s claims block %s but lives in %s",
					ErrInvalidGraph, AddrString(cs.Addr), AddrString(cs.BlockAddr), AddrString(addr))
			}
		}
	}
	return nil
}
