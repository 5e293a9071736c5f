// Package cfg defines the read-only control flow graph model for one
// disassembled function: basic blocks keyed by address, control edges
// with optional branch predicates, and per-block call sites. Graphs
// are constructed once by the artifact loader and never mutated by
// the search or constraint layers.
package cfg

import (
	"fmt"
	"sort"

	"cfquery/pkg/xpr"
)

// ArgType tags a call argument's inferred type. Only string-typed
// arguments participate in string constraint derivation.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgInt     ArgType = "int"
	ArgPointer ArgType = "pointer"
	ArgUnknown ArgType = "unknown"
)

// Instruction is an opaque instruction payload. Only the address is
// meaningful to this layer; the text is carried for presentation.
type Instruction struct {
	Addr uint64 `json:"addr" msgpack:"addr"`
	Text string `json:"text" msgpack:"text"`
}

// CallTargetDesc describes a call instruction's target, resolved to a
// symbol name and/or address, or left symbolic when unresolved.
type CallTargetDesc struct {
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
	Addr uint64 `json:"addr,omitempty" msgpack:"addr,omitempty"`
}

// Matches reports whether the descriptor matches a caller-supplied
// identifier: the symbol name, or the hex-rendered address. Matching
// is purely syntactic.
func (d CallTargetDesc) Matches(identifier string) bool {
	if identifier == "" {
		return false
	}
	if d.Name != "" && d.Name == identifier {
		return true
	}
	return d.Addr != 0 && AddrString(d.Addr) == identifier
}

// String renders the descriptor, preferring the symbol name.
func (d CallTargetDesc) String() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Addr != 0 {
		return AddrString(d.Addr)
	}
	return "<unresolved>"
}

// Argument is one call argument: a symbolic expression plus a type tag.
type Argument struct {
	Type ArgType   `json:"type" msgpack:"type"`
	Expr *xpr.Expr `json:"expr" msgpack:"expr"`
}

// CallSite is a call instruction inside a block, with its ordered
// argument expressions.
type CallSite struct {
	BlockAddr uint64         `json:"block_addr" msgpack:"block_addr"`
	Addr      uint64         `json:"addr" msgpack:"addr"`
	Target    CallTargetDesc `json:"target" msgpack:"target"`
	Args      []Argument     `json:"args,omitempty" msgpack:"args,omitempty"`
}

// Edge is a directed control transfer between two blocks. Predicate
// is the symbolic condition under which the edge is taken; nil marks
// an unconditional or fallthrough transfer.
type Edge struct {
	From      uint64    `json:"from" msgpack:"from"`
	To        uint64    `json:"to" msgpack:"to"`
	Predicate *xpr.Expr `json:"predicate,omitempty" msgpack:"predicate,omitempty"`
}

// Block is a basic block: ordered instructions and the call sites they
// contain, in instruction order.
type Block struct {
	Addr         uint64        `json:"addr" msgpack:"addr"`
	Instructions []Instruction `json:"instructions,omitempty" msgpack:"instructions,omitempty"`
	Calls        []CallSite    `json:"calls,omitempty" msgpack:"calls,omitempty"`
}

// Graph is the control flow graph of a single function.
type Graph struct {
	FunctionAddr uint64            `json:"function_addr" msgpack:"function_addr"`
	FunctionName string            `json:"function_name,omitempty" msgpack:"function_name,omitempty"`
	Entry        uint64            `json:"entry" msgpack:"entry"`
	Blocks       map[uint64]*Block `json:"blocks" msgpack:"blocks"`
	Edges        []Edge            `json:"edges,omitempty" msgpack:"edges,omitempty"`
}

// Block returns the block at addr, or nil.
func (g *Graph) Block(addr uint64) *Block {
	return g.Blocks[addr]
}

// BlockAddrs returns all block addresses in ascending order.
func (g *Graph) BlockAddrs() []uint64 {
	addrs := make([]uint64, 0, len(g.Blocks))
	for a := range g.Blocks {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Successors returns the out-edges of the block at addr, sorted by
// ascending destination address. Traversals that follow this order
// produce reproducible results.
func (g *Graph) Successors(addr uint64) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == addr {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// CallSites returns every call site in the graph, ordered by block
// address then instruction address.
func (g *Graph) CallSites() []CallSite {
	var sites []CallSite
	for _, a := range g.BlockAddrs() {
		sites = append(sites, g.Blocks[a].Calls...)
	}
	return sites
}

// CallTargetNames returns the distinct resolved target names of all
// call sites, sorted. Unresolved targets are rendered as hex addresses.
func (g *Graph) CallTargetNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cs := range g.CallSites() {
		name := cs.Target.String()
		if name == "<unresolved>" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddrString renders a block or instruction address the way the
// analyzer presents them everywhere: 0x-prefixed lowercase hex.
func AddrString(addr uint64) string {
	return fmt.Sprintf("0x%x", addr)
}
