// Package artifact loads and persists the analysis artifacts produced
// by the external disassembly and abstract interpretation engine: per
// function, a finalized CFG plus its invariant table, msgpack encoded.
// Artifacts are read fully into memory before any search starts.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"cfquery/pkg/cfg"
	"cfquery/pkg/invariants"
	"cfquery/pkg/xpr"
)

// ErrFunctionNotFound is returned when a bundle has no function with
// the requested address or name.
var ErrFunctionNotFound = errors.New("function not found in artifact")

// Function is one analyzed function: its CFG and the per-block
// invariant facts proven for it.
type Function struct {
	Name       string                `msgpack:"name" json:"name"`
	Addr       uint64                `msgpack:"addr" json:"addr"`
	Graph      *cfg.Graph            `msgpack:"graph" json:"graph"`
	Invariants map[uint64][]xpr.Fact `msgpack:"invariants,omitempty" json:"invariants,omitempty"`
}

// Provider returns the function's invariant facts as a provider for
// constraint accumulation.
func (f *Function) Provider() invariants.Provider {
	if len(f.Invariants) == 0 {
		return invariants.None{}
	}
	return invariants.NewTable(f.Invariants)
}

// Bundle is the artifact for one analyzed binary: all exported
// functions, keyed by address.
type Bundle struct {
	Binary    string      `msgpack:"binary" json:"binary"`
	Functions []*Function `msgpack:"functions" json:"functions"`
}

// Function returns the function at the given address.
func (b *Bundle) Function(addr uint64) (*Function, error) {
	for _, f := range b.Functions {
		if f.Addr == addr {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, cfg.AddrString(addr))
}

// FunctionByName returns the function with the given symbol name.
func (b *Bundle) FunctionByName(name string) (*Function, error) {
	for _, f := range b.Functions {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
}

// Lookup accepts either a symbol name or a hex address string.
func (b *Bundle) Lookup(identifier string) (*Function, error) {
	if f, err := b.FunctionByName(identifier); err == nil {
		return f, nil
	}
	for _, f := range b.Functions {
		if cfg.AddrString(f.Addr) == identifier {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, identifier)
}

// Save encodes the bundle to a writer using msgpack.
func (b *Bundle) Save(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	return nil
}

// Load decodes a bundle from a reader and validates every CFG, so
// structural defects surface at load time rather than mid-search.
func Load(r io.Reader) (*Bundle, error) {
	var b Bundle
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	for _, f := range b.Functions {
		if f.Graph == nil {
			return nil, fmt.Errorf("%w: function %s has no graph", cfg.ErrInvalidGraph, f.Name)
		}
		if err := f.Graph.Validate(); err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
	}
	return &b, nil
}

// PersistToFile saves the bundle to a file.
func PersistToFile(b *Bundle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact file: %w", err)
	}
	defer f.Close()
	return b.Save(f)
}

// LoadFromFile loads a bundle from a file.
func LoadFromFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
