package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfquery/pkg/cfg"
	"cfquery/pkg/constraint"
	"cfquery/pkg/invariants"
	"cfquery/pkg/target"
	"cfquery/pkg/xpr"
)

// branchGraph is the worked example: two branches out of the entry,
// the positive one reaching a strcpy call.
func branchGraph() *cfg.Graph {
	return &cfg.Graph{
		FunctionAddr: 0x1000,
		FunctionName: "handle_input",
		Entry:        0x1000,
		Blocks: map[uint64]*cfg.Block{
			0x1000: {Addr: 0x1000},
			0x1100: {
				Addr: 0x1100,
				Calls: []cfg.CallSite{{
					BlockAddr: 0x1100,
					Addr:      0x1104,
					Target:    cfg.CallTargetDesc{Name: "strcpy"},
					Args: []cfg.Argument{
						{Type: cfg.ArgPointer, Expr: xpr.Var("dst")},
						{Type: cfg.ArgPointer, Expr: xpr.Var("src")},
					},
				}},
			},
			0x1200: {Addr: 0x1200},
			0x1300: {Addr: 0x1300},
		},
		Edges: []cfg.Edge{
			{From: 0x1000, To: 0x1100, Predicate: xpr.Binary(xpr.OpGt, xpr.Var("x"), xpr.Int(0))},
			{From: 0x1000, To: 0x1200, Predicate: xpr.Binary(xpr.OpLe, xpr.Var("x"), xpr.Int(0))},
			{From: 0x1100, To: 0x1300},
			{From: 0x1200, To: 0x1300},
		},
	}
}

func newResolver() *target.Resolver {
	return target.NewResolver(target.DefaultSummaries())
}

func TestFindPathsCallTarget(t *testing.T) {
	g := branchGraph()
	prov := invariants.NewTable(map[uint64][]xpr.Fact{
		0x1100: {xpr.StringLiteralFact("dst", "/tmp/out")},
	})

	resp, err := FindPaths(g, prov, newResolver(), Request{Target: target.CallSpec("strcpy")})
	require.NoError(t, err)
	assert.False(t, resp.Truncated)
	require.Len(t, resp.Paths, 1)

	pr := resp.Paths[0]
	assert.Equal(t, []uint64{0x1000, 0x1100}, pr.Path.Blocks)
	assert.Equal(t, "(x > 0)", pr.Accumulated.Condition.String())

	sc := pr.Accumulated.StringConstraint
	require.NotNil(t, sc)
	assert.Equal(t, constraint.KindLiteral, sc.Kind)
	assert.Equal(t, "/tmp/out", sc.Value)
	assert.Equal(t, "strcpy", sc.Call)
}

func TestFindPathsBlockTarget(t *testing.T) {
	g := branchGraph()

	resp, err := FindPaths(g, invariants.None{}, newResolver(),
		Request{Target: target.BlockSpec(0x1200)})
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)

	pr := resp.Paths[0]
	assert.Equal(t, []uint64{0x1000, 0x1200}, pr.Path.Blocks)
	assert.Equal(t, "(x <= 0)", pr.Accumulated.Condition.String())
	assert.Empty(t, pr.Accumulated.Calls)
	assert.Nil(t, pr.Accumulated.StringConstraint)
}

func TestFindPathsUnknownTarget(t *testing.T) {
	g := branchGraph()

	_, err := FindPaths(g, invariants.None{}, newResolver(),
		Request{Target: target.CallSpec("memmove")})
	assert.ErrorIs(t, err, target.ErrUnknownTarget)

	_, err = FindPaths(g, invariants.None{}, newResolver(),
		Request{Target: target.BlockSpec(0xdead)})
	assert.ErrorIs(t, err, target.ErrUnknownBlock)
}

func TestFindPathsSinkAndSegments(t *testing.T) {
	g := branchGraph()
	sink := uint64(0x1100)

	resp, err := FindPaths(g, invariants.None{}, newResolver(), Request{
		Target: target.BlockSpec(0x1300),
		Sink:   &sink,
	})
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, []uint64{0x1000, 0x1100, 0x1300}, resp.Paths[0].Path.Blocks)

	resp, err = FindPaths(g, invariants.None{}, newResolver(), Request{
		Target:   target.BlockSpec(0x1300),
		Segments: []uint64{0x1200},
	})
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, []uint64{0x1000, 0x1200, 0x1300}, resp.Paths[0].Path.Blocks)
}

func TestFindPathsInvalidGraph(t *testing.T) {
	g := branchGraph()
	g.Edges = append(g.Edges, cfg.Edge{From: 0x1000, To: 0xbeef})

	_, err := FindPaths(g, invariants.None{}, newResolver(),
		Request{Target: target.CallSpec("strcpy")})
	assert.ErrorIs(t, err, cfg.ErrInvalidGraph)
}
