// Package report turns search and accumulation results into
// presentation models: text table lines, JSON-ready views, and a dot
// graph model for the external renderer. It is a pure transformation
// and holds no state beyond its inputs.
package report

import (
	"fmt"
	"strings"

	"cfquery/pkg/cfg"
	"cfquery/pkg/constraint"
	"cfquery/pkg/invariants"
	"cfquery/pkg/search"
)

// Options selects which accumulated data the views include. Constraint
// derivation always runs upstream; these toggles only affect
// presentation.
type Options struct {
	ShowConditions        bool
	ShowCalls             bool
	ShowStringConstraints bool
}

// CallView is one annotated call, rendered.
type CallView struct {
	Addr   string   `json:"addr"`
	Target string   `json:"target"`
	Args   []string `json:"args,omitempty"`
}

// StringConstraintView is a rendered string constraint.
type StringConstraintView struct {
	Call     string `json:"call"`
	ArgIndex int    `json:"arg_index"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
	Guard    string `json:"guard"`
}

// PathView is one path prepared for presentation.
type PathView struct {
	Index            int                   `json:"index"`
	Blocks           []string              `json:"blocks"`
	Condition        string                `json:"condition,omitempty"`
	Calls            []CallView            `json:"calls,omitempty"`
	StringConstraint *StringConstraintView `json:"string_constraint,omitempty"`
}

// Build pairs each path with its accumulated data and renders the
// views. paths and accs must be parallel slices.
func Build(paths []search.Path, accs []constraint.Accumulated, opts Options) []PathView {
	views := make([]PathView, 0, len(paths))
	for i, p := range paths {
		v := PathView{Index: i + 1}
		for _, b := range p.Blocks {
			v.Blocks = append(v.Blocks, cfg.AddrString(b))
		}
		acc := accs[i]
		if opts.ShowConditions {
			v.Condition = acc.Condition.String()
		}
		if opts.ShowCalls {
			for _, call := range acc.Calls {
				cv := CallView{
					Addr:   cfg.AddrString(call.Site.Addr),
					Target: call.Site.Target.String(),
				}
				for _, arg := range call.Args {
					cv.Args = append(cv.Args, arg.String())
				}
				v.Calls = append(v.Calls, cv)
			}
		}
		if opts.ShowStringConstraints && acc.StringConstraint != nil {
			sc := acc.StringConstraint
			v.StringConstraint = &StringConstraintView{
				Call:     sc.Call,
				ArgIndex: sc.ArgIndex,
				Kind:     string(sc.Kind),
				Detail:   sc.String(),
				Guard:    sc.Guard.String(),
			}
		}
		views = append(views, v)
	}
	return views
}

// Table renders path views as text lines for terminal output.
func Table(views []PathView, truncated bool) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("paths found: %d", len(views)))
	if truncated {
		lines = append(lines, "warning: search budget expired, result set is incomplete")
	}
	for _, v := range views {
		lines = append(lines, fmt.Sprintf("path %d: %s", v.Index, strings.Join(v.Blocks, " -> ")))
		if v.Condition != "" {
			lines = append(lines, fmt.Sprintf("  condition: %s", v.Condition))
		}
		for _, c := range v.Calls {
			if len(c.Args) > 0 {
				lines = append(lines, fmt.Sprintf("  call %s: %s(%s)", c.Addr, c.Target, strings.Join(c.Args, ", ")))
			} else {
				lines = append(lines, fmt.Sprintf("  call %s: %s", c.Addr, c.Target))
			}
		}
		if v.StringConstraint != nil {
			lines = append(lines, fmt.Sprintf("  string constraint: %s", v.StringConstraint.Detail))
		}
	}
	return lines
}

// InvariantTable renders the per-block invariant facts of a function,
// one block per section, blocks in ascending address order.
func InvariantTable(g *cfg.Graph, prov invariants.Provider) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("invariants for %s", functionLabel(g)))
	for _, addr := range g.BlockAddrs() {
		facts := prov.At(addr)
		lines = append(lines, fmt.Sprintf("block %s:", cfg.AddrString(addr)))
		if len(facts) == 0 {
			lines = append(lines, "  (none)")
			continue
		}
		for _, f := range facts {
			lines = append(lines, "  "+f.String())
		}
	}
	return lines
}

func functionLabel(g *cfg.Graph) string {
	if g.FunctionName != "" {
		return fmt.Sprintf("%s (%s)", g.FunctionName, cfg.AddrString(g.FunctionAddr))
	}
	return cfg.AddrString(g.FunctionAddr)
}
