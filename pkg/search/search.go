// Package search implements target-directed path enumeration over a
// function's CFG: a bounded depth-first traversal from the entry block
// that collects every acyclic path reaching the target, together with
// the edges taken and the call sites passed on the way.
package search

import (
	"fmt"
	"time"

	"cfquery/pkg/cfg"
	"cfquery/pkg/target"
)

// Path is one qualifying execution path. Blocks is non-empty and
// starts at the function entry; Edges[i] connects Blocks[i] to
// Blocks[i+1]. Calls lists the call sites encountered along the path
// in order. For a call target, TargetCall points at the matching call
// site (the last element of Calls) and the path is cut immediately
// after it.
type Path struct {
	Blocks     []uint64
	Edges      []cfg.Edge
	Calls      []cfg.CallSite
	TargetCall *cfg.CallSite
}

// Contains reports whether the path visits the block.
func (p Path) Contains(addr uint64) bool {
	for _, b := range p.Blocks {
		if b == addr {
			return true
		}
	}
	return false
}

// Result is the outcome of one search. Truncated is set when the
// wall-clock budget expired before the traversal completed; the paths
// found so far are still returned.
type Result struct {
	Paths     []Path
	Truncated bool
}

// Options bounds and filters a search.
type Options struct {
	// Sink, when non-nil, retains only paths passing through this
	// block before termination.
	Sink *uint64

	// Segments, when non-empty, retains only paths passing through
	// every listed block, in any relative order.
	Segments []uint64

	// Budget is the wall-clock limit for the traversal. Zero means
	// unbounded. Expiry truncates the result, it is not an error.
	Budget time.Duration
}

// Engine runs searches. It holds no per-search state; one Engine may
// serve any number of independent searches.
type Engine struct {
	now func() time.Time
}

// New returns an Engine using the system clock.
func New() *Engine {
	return &Engine{now: time.Now}
}

// NewWithClock returns an Engine with an injected clock, for tests
// that exercise budget expiry deterministically.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// traversal is the state of one search invocation. The visited set and
// path frames are owned exclusively by this traversal; nothing is
// shared across searches.
type traversal struct {
	graph    *cfg.Graph
	target   target.Target
	opts     Options
	now      func() time.Time
	deadline time.Time
	timed    bool
	expired  bool

	succ    map[uint64][]cfg.Edge
	visited map[uint64]bool
	blocks  []uint64
	edges   []cfg.Edge
	calls   []cfg.CallSite

	paths []Path
}

// Search enumerates paths from the graph's entry to the target. The
// graph is validated first; a structural defect is a fatal error. An
// unreachable target is not an error: it yields an empty result.
func (e *Engine) Search(g *cfg.Graph, tgt target.Target, opts Options) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	tr := &traversal{
		graph:   g,
		target:  tgt,
		opts:    opts,
		now:     e.now,
		succ:    successorMap(g),
		visited: make(map[uint64]bool),
	}
	if opts.Budget > 0 {
		tr.timed = true
		tr.deadline = e.now().Add(opts.Budget)
	}

	tr.visit(g.Entry)

	return Result{Paths: tr.paths, Truncated: tr.expired}, nil
}

// successorMap precomputes the sorted successor lists for every block
// so the traversal does not rescan the edge slice per expansion.
func successorMap(g *cfg.Graph) map[uint64][]cfg.Edge {
	succ := make(map[uint64][]cfg.Edge, len(g.Blocks))
	for addr := range g.Blocks {
		if edges := g.Successors(addr); len(edges) > 0 {
			succ[addr] = edges
		}
	}
	return succ
}

// visit extends the current path into the block at addr. It records a
// completed path when the target predicate holds, and otherwise
// recurses into unvisited successors. The block is released from the
// visited set on return so sibling branches may traverse it.
func (tr *traversal) visit(addr uint64) {
	if tr.expired {
		return
	}
	// Cooperative budget check, once per block expansion.
	if tr.timed && tr.now().After(tr.deadline) {
		tr.expired = true
		return
	}

	tr.visited[addr] = true
	tr.blocks = append(tr.blocks, addr)
	callMark := len(tr.calls)

	defer func() {
		tr.calls = tr.calls[:callMark]
		tr.blocks = tr.blocks[:len(tr.blocks)-1]
		delete(tr.visited, addr)
	}()

	if tr.target.MatchesBlock(addr) {
		tr.record(nil)
		return
	}

	block := tr.graph.Blocks[addr]
	for i := range block.Calls {
		cs := block.Calls[i]
		if tr.target.MatchesCall(cs) {
			// The path is cut immediately after the matching call:
			// later calls in the block are not part of it.
			tr.calls = append(tr.calls, cs)
			tr.record(&cs)
			return
		}
		tr.calls = append(tr.calls, cs)
	}

	for _, edge := range tr.succ[addr] {
		if tr.visited[edge.To] {
			continue
		}
		tr.edges = append(tr.edges, edge)
		tr.visit(edge.To)
		tr.edges = tr.edges[:len(tr.edges)-1]
		if tr.expired {
			return
		}
	}
}

// record captures the current frame as a completed path if it passes
// the sink and segment filters.
func (tr *traversal) record(targetCall *cfg.CallSite) {
	if tr.opts.Sink != nil && !tr.visited[*tr.opts.Sink] {
		return
	}
	for _, seg := range tr.opts.Segments {
		if !tr.visited[seg] {
			return
		}
	}

	p := Path{
		Blocks: append([]uint64(nil), tr.blocks...),
		Edges:  append([]cfg.Edge(nil), tr.edges...),
		Calls:  append([]cfg.CallSite(nil), tr.calls...),
	}
	if targetCall != nil {
		c := *targetCall
		p.TargetCall = &c
	}
	tr.paths = append(tr.paths, p)
}
