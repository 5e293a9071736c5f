// Package query is the entry point callers use: it wires target
// resolution, path search, and constraint accumulation into a single
// find-paths operation over one function.
package query

import (
	"time"

	"cfquery/pkg/cfg"
	"cfquery/pkg/constraint"
	"cfquery/pkg/invariants"
	"cfquery/pkg/search"
	"cfquery/pkg/target"
)

// Request describes one find-paths invocation.
type Request struct {
	// Target is the unresolved target description.
	Target target.Spec

	// Sink, when non-nil, keeps only paths passing through this block.
	Sink *uint64

	// Segments, when non-empty, keeps only paths passing through all
	// listed blocks.
	Segments []uint64

	// MaxSeconds is the wall-clock search budget. Zero means
	// unbounded.
	MaxSeconds float64
}

// PathResult is one found path with its accumulated constraints.
type PathResult struct {
	Path        search.Path
	Accumulated constraint.Accumulated
}

// Response carries every qualifying path and the truncation flag.
// Truncation is a result qualifier, never an error: callers decide
// whether to re-run with a larger budget.
type Response struct {
	Paths     []PathResult
	Truncated bool
}

// FindPaths resolves the target, searches the graph, and accumulates
// constraints for each found path. Constraint derivation always runs;
// hiding it is the reporter's concern.
func FindPaths(g *cfg.Graph, prov invariants.Provider, r *target.Resolver, req Request) (*Response, error) {
	tgt, err := r.Resolve(req.Target, g)
	if err != nil {
		return nil, err
	}

	opts := search.Options{
		Sink:     req.Sink,
		Segments: req.Segments,
	}
	if req.MaxSeconds > 0 {
		opts.Budget = time.Duration(req.MaxSeconds * float64(time.Second))
	}

	engine := search.New()
	result, err := engine.Search(g, tgt, opts)
	if err != nil {
		return nil, err
	}

	acc := constraint.New(r)
	resp := &Response{Truncated: result.Truncated}
	for _, p := range result.Paths {
		resp.Paths = append(resp.Paths, PathResult{
			Path:        p,
			Accumulated: acc.Accumulate(p, prov),
		})
	}
	return resp, nil
}
