package report

import (
	"fmt"
	"sort"
	"strings"

	"cfquery/pkg/cfg"
	"cfquery/pkg/search"
)

// DotNode is one node of the export graph.
type DotNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// DotEdge is one directed edge of the export graph.
type DotEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// DotModel is the graph presentation model handed to the external
// renderer. The node set is restricted to blocks appearing on at
// least one found path; the renderer never sees the CFG itself.
type DotModel struct {
	Name    string    `json:"name"`
	RankDir string    `json:"rankdir"`
	Nodes   []DotNode `json:"nodes"`
	Edges   []DotEdge `json:"edges"`

	// Truncated marks a graph built from a budget-expired search, so
	// the export itself says the path set is incomplete.
	Truncated bool `json:"truncated,omitempty"`
}

// DotFromPaths builds the export model for a set of found paths.
// Terminal blocks of paths are highlighted.
func DotFromPaths(g *cfg.Graph, paths []search.Path, name string) DotModel {
	onPath := make(map[uint64]bool)
	terminal := make(map[uint64]bool)
	for _, p := range paths {
		for _, b := range p.Blocks {
			onPath[b] = true
		}
		if len(p.Blocks) > 0 {
			terminal[p.Blocks[len(p.Blocks)-1]] = true
		}
	}

	m := DotModel{Name: name, RankDir: "LR"}

	addrs := make([]uint64, 0, len(onPath))
	for a := range onPath {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, a := range addrs {
		n := DotNode{ID: cfg.AddrString(a), Label: cfg.AddrString(a)}
		switch {
		case terminal[a]:
			n.Color = "red"
		case a == g.Entry:
			n.Color = "green"
		default:
			n.Color = "lightblue"
		}
		m.Nodes = append(m.Nodes, n)
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		for _, e := range p.Edges {
			key := cfg.AddrString(e.From) + "->" + cfg.AddrString(e.To)
			if seen[key] {
				continue
			}
			seen[key] = true
			de := DotEdge{From: cfg.AddrString(e.From), To: cfg.AddrString(e.To)}
			if e.Predicate != nil {
				de.Label = e.Predicate.String()
			}
			m.Edges = append(m.Edges, de)
		}
	}
	sort.Slice(m.Edges, func(i, j int) bool {
		if m.Edges[i].From != m.Edges[j].From {
			return m.Edges[i].From < m.Edges[j].From
		}
		return m.Edges[i].To < m.Edges[j].To
	})

	return m
}

// Render serializes the model to dot text. Rendering to pdf or an
// image stays with the external graphics tool.
func (m DotModel) Render() string {
	var sb strings.Builder
	if m.Truncated {
		sb.WriteString("// search budget expired, result set is incomplete\n")
	}
	fmt.Fprintf(&sb, "digraph %q {\n", m.Name)
	if m.RankDir != "" {
		fmt.Fprintf(&sb, "  rankdir=%s;\n", m.RankDir)
	}
	for _, n := range m.Nodes {
		fmt.Fprintf(&sb, "  %q [label=%q", n.ID, n.Label)
		if n.Color != "" {
			fmt.Fprintf(&sb, ", style=filled, fillcolor=%q", n.Color)
		}
		sb.WriteString("];\n")
	}
	for _, e := range m.Edges {
		fmt.Fprintf(&sb, "  %q -> %q", e.From, e.To)
		if e.Label != "" {
			fmt.Fprintf(&sb, " [label=%q]", e.Label)
		}
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
