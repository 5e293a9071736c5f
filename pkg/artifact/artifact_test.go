package artifact

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfquery/pkg/cfg"
	"cfquery/pkg/xpr"
)

func sampleBundle() *Bundle {
	g := &cfg.Graph{
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
					Target:    cfg.CallTargetDesc{Name: "strcpy", Addr: 0x4010},
					Args: []cfg.Argument{
						{Type: cfg.ArgPointer, Expr: xpr.Var("dst")},
						{Type: cfg.ArgPointer, Expr: xpr.Var("src")},
					},
				}},
			},
		},
		Edges: []cfg.Edge{{
			From: 0x1000, To: 0x1100,
			Predicate: xpr.Binary(xpr.OpGt, xpr.Var("x"), xpr.Int(0)),
		}},
	}
	return &Bundle{
		Binary: "demo.so",
		Functions: []*Function{{
			Name:  "handle_input",
			Addr:  0x1000,
			Graph: g,
			Invariants: map[uint64][]xpr.Fact{
				0x1100: {xpr.StringLiteralFact("dst", "/tmp/out")},
			},
		}},
	}
}

func TestBundleSaveLoad(t *testing.T) {
	orig := sampleBundle()

	var buf bytes.Buffer
	require.NoError(t, orig.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, "demo.so", loaded.Binary)
	require.Len(t, loaded.Functions, 1)

	fn := loaded.Functions[0]
	assert.Equal(t, "handle_input", fn.Name)
	assert.Equal(t, uint64(0x1000), fn.Addr)
	require.NotNil(t, fn.Graph)
	assert.Equal(t, uint64(0x1000), fn.Graph.Entry)
	assert.Len(t, fn.Graph.Blocks, 2)
	require.Len(t, fn.Graph.Edges, 1)
	assert.Equal(t, "(x > 0)", fn.Graph.Edges[0].Predicate.String())

	call := fn.Graph.Blocks[0x1100].Calls[0]
	assert.Equal(t, "strcpy", call.Target.Name)
	assert.Equal(t, "dst", call.Args[0].Expr.String())

	facts := fn.Provider().At(0x1100)
	require.Len(t, facts, 1)
	assert.Equal(t, `dst = "/tmp/out"`, facts[0].String())
}

func TestLoadRejectsInvalidGraph(t *testing.T) {
	b := sampleBundle()
	b.Functions[0].Graph.Edges = append(b.Functions[0].Graph.Edges, cfg.Edge{From: 0x1000, To: 0x9999})

	var buf bytes.Buffer
	require.NoError(t, b.Save(&buf))

	_, err := Load(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, cfg.ErrInvalidGraph)
}

func TestPersistAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.cfq")
	require.NoError(t, PersistToFile(sampleBundle(), path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Functions, 1)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.cfq"))
	assert.Error(t, err)
}

func TestBundleLookup(t *testing.T) {
	b := sampleBundle()

	byName, err := b.FunctionByName("handle_input")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), byName.Addr)

	byAddr, err := b.Function(0x1000)
	require.NoError(t, err)
	assert.Equal(t, "handle_input", byAddr.Name)

	viaLookup, err := b.Lookup("0x1000")
	require.NoError(t, err)
	assert.Equal(t, "handle_input", viaLookup.Name)

	_, err = b.Function(0x2000)
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = b.FunctionByName("missing")
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = b.Lookup("missing")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestProviderWithoutInvariants(t *testing.T) {
	fn := &Function{Name: "f", Addr: 0x10}
	assert.Empty(t, fn.Provider().At(0x10))
}
