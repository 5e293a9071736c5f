package search

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"cfquery/pkg/cfg"
	"cfquery/pkg/target"
	"cfquery/pkg/xpr"
)

// branchGraph builds the canonical two-way branch:
//
//	A --(x>0)--> B --> D      B calls strcpy
//	A --(x<=0)-> C --> D
func branchGraph() *cfg.Graph {
	strcpyCall := cfg.CallSite{
		BlockAddr: 0x1100,
		Addr:      0x1104,
		Target:    cfg.CallTargetDesc{Name: "strcpy"},
		Args: []cfg.Argument{
			{Type: cfg.ArgPointer, Expr: xpr.Var("dst")},
			{Type: cfg.ArgPointer, Expr: xpr.Var("src")},
		},
	}
	return &cfg.Graph{
		FunctionAddr: 0x1000,
		Entry:        0x1000,
		Blocks: map[uint64]*cfg.Block{
			0x1000: {Addr: 0x1000},
			0x1100: {Addr: 0x1100, Calls: []cfg.CallSite{strcpyCall}},
			0x1200: {Addr: 0x1200},
			0x1300: {Addr: 0x1300},
		},
		Edges: []cfg.Edge{
			// Deliberately out of address order: traversal must sort.
			{From: 0x1000, To: 0x1200, Predicate: xpr.Binary(xpr.OpLe, xpr.Var("x"), xpr.Int(0))},
			{From: 0x1000, To: 0x1100, Predicate: xpr.Binary(xpr.OpGt, xpr.Var("x"), xpr.Int(0))},
			{From: 0x1100, To: 0x1300},
			{From: 0x1200, To: 0x1300},
		},
	}
}

func callTarget(identifier string) target.Target {
	return target.Target{Kind: target.KindCall, Identifier: identifier}
}

func blockTarget(addr uint64) target.Target {
	return target.Target{Kind: target.KindBlock, BlockAddr: addr}
}

func TestSearchCallTarget(t *testing.T) {
	g := branchGraph()
	result, err := New().Search(g, callTarget("strcpy"), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if result.Truncated {
		t.Errorf("Truncated = true, want false")
	}
	if len(result.Paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(result.Paths))
	}

	p := result.Paths[0]
	wantBlocks := []uint64{0x1000, 0x1100}
	if !reflect.DeepEqual(p.Blocks, wantBlocks) {
		t.Errorf("Blocks = %#x, want %#x", p.Blocks, wantBlocks)
	}
	if len(p.Edges) != 1 || p.Edges[0].Predicate.String() != "(x > 0)" {
		t.Errorf("Edges = %+v, want one edge with predicate (x > 0)", p.Edges)
	}
	if p.TargetCall == nil || p.TargetCall.Target.Name != "strcpy" {
		t.Errorf("TargetCall = %+v, want strcpy", p.TargetCall)
	}
	if len(p.Calls) != 1 || p.Calls[0].Target.Name != "strcpy" {
		t.Errorf("Calls = %+v, want [strcpy]", p.Calls)
	}
}

func TestSearchBlockTarget(t *testing.T) {
	g := branchGraph()
	result, err := New().Search(g, blockTarget(0x1200), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(result.Paths))
	}

	p := result.Paths[0]
	wantBlocks := []uint64{0x1000, 0x1200}
	if !reflect.DeepEqual(p.Blocks, wantBlocks) {
		t.Errorf("Blocks = %#x, want %#x", p.Blocks, wantBlocks)
	}
	if len(p.Edges) != 1 || p.Edges[0].Predicate.String() != "(x <= 0)" {
		t.Errorf("Edges = %+v, want one edge with predicate (x <= 0)", p.Edges)
	}
	if len(p.Calls) != 0 {
		t.Errorf("Calls = %+v, want none", p.Calls)
	}
	if p.TargetCall != nil {
		t.Errorf("TargetCall = %+v, want nil for block target", p.TargetCall)
	}
}

func TestSearchPathCutAfterMatchingCall(t *testing.T) {
	g := &cfg.Graph{
		FunctionAddr: 0x10,
		Entry:        0x10,
		Blocks: map[uint64]*cfg.Block{
			0x10: {Addr: 0x10, Calls: []cfg.CallSite{
				{BlockAddr: 0x10, Addr: 0x12, Target: cfg.CallTargetDesc{Name: "malloc"}},
				{BlockAddr: 0x10, Addr: 0x14, Target: cfg.CallTargetDesc{Name: "strcpy"}},
				{BlockAddr: 0x10, Addr: 0x16, Target: cfg.CallTargetDesc{Name: "free"}},
			}},
			0x20: {Addr: 0x20},
		},
		Edges: []cfg.Edge{{From: 0x10, To: 0x20}},
	}

	result, err := New().Search(g, callTarget("strcpy"), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(result.Paths))
	}
	p := result.Paths[0]
	if len(p.Blocks) != 1 || p.Blocks[0] != 0x10 {
		t.Errorf("Blocks = %#x, want [0x10]", p.Blocks)
	}
	// malloc precedes the match; free follows it and is excluded.
	if len(p.Calls) != 2 || p.Calls[0].Target.Name != "malloc" || p.Calls[1].Target.Name != "strcpy" {
		t.Errorf("Calls = %+v, want [malloc strcpy]", p.Calls)
	}
}

func TestSearchSelfLoopTerminates(t *testing.T) {
	g := &cfg.Graph{
		FunctionAddr: 0x10,
		Entry:        0x10,
		Blocks:       map[uint64]*cfg.Block{0x10: {Addr: 0x10}},
		Edges:        []cfg.Edge{{From: 0x10, To: 0x10}},
	}

	result, err := New().Search(g, callTarget("strcpy"), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) != 0 {
		t.Errorf("got %d paths, want 0", len(result.Paths))
	}
	if result.Truncated {
		t.Errorf("Truncated = true, want false")
	}
}

// loopGraph has a cycle between 0x20 and 0x30 and a target block 0x40.
func loopGraph() *cfg.Graph {
	return &cfg.Graph{
		FunctionAddr: 0x10,
		Entry:        0x10,
		Blocks: map[uint64]*cfg.Block{
			0x10: {Addr: 0x10},
			0x20: {Addr: 0x20},
			0x30: {Addr: 0x30},
			0x40: {Addr: 0x40},
		},
		Edges: []cfg.Edge{
			{From: 0x10, To: 0x20},
			{From: 0x20, To: 0x30, Predicate: xpr.Binary(xpr.OpLt, xpr.Var("i"), xpr.Int(10))},
			{From: 0x30, To: 0x20}, // back edge
			{From: 0x30, To: 0x40},
			{From: 0x20, To: 0x40, Predicate: xpr.Binary(xpr.OpGe, xpr.Var("i"), xpr.Int(10))},
		},
	}
}

func TestSearchPathsWellFormed(t *testing.T) {
	g := loopGraph()
	result, err := New().Search(g, blockTarget(0x40), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) == 0 {
		t.Fatalf("expected paths through the loop graph")
	}

	edgeSet := make(map[[2]uint64]bool)
	for _, e := range g.Edges {
		edgeSet[[2]uint64{e.From, e.To}] = true
	}

	for i, p := range result.Paths {
		if p.Blocks[0] != g.Entry {
			t.Errorf("path %d does not start at entry: %#x", i, p.Blocks)
		}
		seen := make(map[uint64]bool)
		for _, b := range p.Blocks {
			if seen[b] {
				t.Errorf("path %d revisits block %#x", i, b)
			}
			seen[b] = true
		}
		if len(p.Edges) != len(p.Blocks)-1 {
			t.Errorf("path %d has %d edges for %d blocks", i, len(p.Edges), len(p.Blocks))
		}
		for j, e := range p.Edges {
			if e.From != p.Blocks[j] || e.To != p.Blocks[j+1] {
				t.Errorf("path %d edge %d (%#x -> %#x) does not connect %#x -> %#x",
					i, j, e.From, e.To, p.Blocks[j], p.Blocks[j+1])
			}
			if !edgeSet[[2]uint64{e.From, e.To}] {
				t.Errorf("path %d uses edge %#x -> %#x not present in graph", i, e.From, e.To)
			}
		}
	}
}

func TestSearchDeterministicOrdering(t *testing.T) {
	g := loopGraph()

	first, err := New().Search(g, blockTarget(0x40), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	second, err := New().Search(g, blockTarget(0x40), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two identical searches differ:\n%+v\n%+v", first, second)
	}

	// Branch exploration follows ascending destination address: from
	// 0x20 the edge to 0x30 is taken before the direct exit to 0x40,
	// so the longer path is discovered first.
	wantFirst := []uint64{0x10, 0x20, 0x30, 0x40}
	if !reflect.DeepEqual(first.Paths[0].Blocks, wantFirst) {
		t.Errorf("first path = %#x, want %#x", first.Paths[0].Blocks, wantFirst)
	}
}

func TestSearchSinkFilter(t *testing.T) {
	g := loopGraph()
	sink := uint64(0x30)
	result, err := New().Search(g, blockTarget(0x40), Options{Sink: &sink})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) == 0 {
		t.Fatalf("expected at least one path through the sink")
	}
	for i, p := range result.Paths {
		if !p.Contains(sink) {
			t.Errorf("path %d misses sink %#x: %#x", i, sink, p.Blocks)
		}
	}

	// Without the filter there is also a path avoiding 0x30.
	unfiltered, err := New().Search(g, blockTarget(0x40), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(unfiltered.Paths) <= len(result.Paths) {
		t.Errorf("sink filter did not prune: %d filtered vs %d unfiltered",
			len(result.Paths), len(unfiltered.Paths))
	}
}

func TestSearchSegmentsFilter(t *testing.T) {
	g := loopGraph()
	result, err := New().Search(g, blockTarget(0x40), Options{Segments: []uint64{0x20, 0x30}})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	for i, p := range result.Paths {
		for _, seg := range []uint64{0x20, 0x30} {
			if !p.Contains(seg) {
				t.Errorf("path %d misses segment %#x: %#x", i, seg, p.Blocks)
			}
		}
	}
	if len(result.Paths) != 1 {
		t.Errorf("got %d paths, want exactly the path through both segments", len(result.Paths))
	}
}

func TestSearchUnreachableTargetIsEmptyNotError(t *testing.T) {
	g := branchGraph()
	// 0x1300 is reachable; make an isolated extra block instead.
	g.Blocks[0x1400] = &cfg.Block{Addr: 0x1400}

	result, err := New().Search(g, blockTarget(0x1400), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(result.Paths) != 0 || result.Truncated {
		t.Errorf("unreachable target: got %d paths, truncated=%v, want empty and false",
			len(result.Paths), result.Truncated)
	}
}

func TestSearchInvalidGraph(t *testing.T) {
	g := &cfg.Graph{
		FunctionAddr: 0x10,
		Entry:        0x10,
		Blocks:       map[uint64]*cfg.Block{0x10: {Addr: 0x10}},
		Edges:        []cfg.Edge{{From: 0x10, To: 0x99}},
	}
	_, err := New().Search(g, blockTarget(0x10), Options{})
	if !errors.Is(err, cfg.ErrInvalidGraph) {
		t.Errorf("Search() error = %v, want ErrInvalidGraph", err)
	}
}

// fakeClock advances by step on every call, starting at start.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	calls := 0
	return func() time.Time {
		t := start.Add(step * time.Duration(calls))
		calls++
		return t
	}
}

func diamondGraph() *cfg.Graph {
	return &cfg.Graph{
		FunctionAddr: 0x10,
		Entry:        0x10,
		Blocks: map[uint64]*cfg.Block{
			0x10: {Addr: 0x10},
			0x20: {Addr: 0x20},
			0x30: {Addr: 0x30},
			0x40: {Addr: 0x40},
		},
		Edges: []cfg.Edge{
			{From: 0x10, To: 0x20},
			{From: 0x10, To: 0x30},
			{From: 0x20, To: 0x40},
			{From: 0x30, To: 0x40},
		},
	}
}

func TestSearchBudgetTruncation(t *testing.T) {
	g := diamondGraph()
	start := time.Unix(0, 0)

	// Each block expansion advances the clock 100ms; the budget admits
	// the first branch but expires before the second.
	engine := NewWithClock(fakeClock(start, 100*time.Millisecond))
	truncated, err := engine.Search(g, blockTarget(0x40), Options{Budget: 350 * time.Millisecond})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if !truncated.Truncated {
		t.Fatalf("Truncated = false, want true")
	}

	full, err := New().Search(g, blockTarget(0x40), Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(full.Paths) != 2 {
		t.Fatalf("full search found %d paths, want 2", len(full.Paths))
	}
	if len(truncated.Paths) >= len(full.Paths) {
		t.Fatalf("truncated search found %d paths, want fewer than %d",
			len(truncated.Paths), len(full.Paths))
	}

	// The truncated result is a prefix of the full one: same inputs,
	// same deterministic order.
	for i, p := range truncated.Paths {
		if !reflect.DeepEqual(p.Blocks, full.Paths[i].Blocks) {
			t.Errorf("truncated path %d = %#x, full path = %#x", i, p.Blocks, full.Paths[i].Blocks)
		}
	}
}

func TestSearchZeroBudgetIsUnbounded(t *testing.T) {
	g := diamondGraph()
	result, err := New().Search(g, blockTarget(0x40), Options{Budget: 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if result.Truncated || len(result.Paths) != 2 {
		t.Errorf("got %d paths, truncated=%v; want 2 paths and no truncation",
			len(result.Paths), result.Truncated)
	}
}
