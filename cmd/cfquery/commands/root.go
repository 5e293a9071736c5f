// Package commands provides the CLI commands for the cfquery tool.
package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cfquery/internal/config"
	"cfquery/pkg/artifact"
	"cfquery/pkg/constraint"
	"cfquery/pkg/query"
	"cfquery/pkg/search"
	"cfquery/pkg/target"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cfquery",
	Short: "cfquery - path queries over binary control flow graphs",
	Long: `cfquery answers target-directed path queries over the control flow
graphs of a disassembled binary, using analysis artifacts produced by
an external disassembly and abstract interpretation engine.

Commands:
  paths       Enumerate paths to a call target or block
  blocks      List a function's blocks and call sites
  invariants  Show the per-block invariant facts of a function
  dot         Export found paths as a dot graph

Use "cfquery [command] --help" for more information about a command.`,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// loadFunction opens the artifact file and looks up the function by
// name or hex address.
func loadFunction(artifactPath, function string) (*artifact.Function, error) {
	bundle, err := artifact.LoadFromFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("loading artifact: %w", err)
	}
	fn, err := bundle.Lookup(function)
	if err != nil {
		return nil, err
	}
	return fn, nil
}

// newResolver builds the target resolver from config: built-in
// summaries plus the user's summaries file, if configured.
func newResolver(cfg *config.Config) (*target.Resolver, error) {
	summaries, err := config.LoadSummaries(cfg.SummariesPath)
	if err != nil {
		return nil, err
	}
	return target.NewResolver(summaries), nil
}

// splitResults separates a query response into the parallel slices the
// reporter consumes.
func splitResults(resp *query.Response) ([]search.Path, []constraint.Accumulated) {
	paths := make([]search.Path, len(resp.Paths))
	accs := make([]constraint.Accumulated, len(resp.Paths))
	for i, pr := range resp.Paths {
		paths[i] = pr.Path
		accs[i] = pr.Accumulated
	}
	return paths, accs
}

// parseAddr parses a block address in decimal or 0x-hex notation.
func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}
