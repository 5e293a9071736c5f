package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cfquery/pkg/cfg"
)

// blocksCmd represents the blocks command
var blocksCmd = &cobra.Command{
	Use:   "blocks <artifact> <function>",
	Short: "List a function's blocks and call sites",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := loadFunction(args[0], args[1])
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			data, err := json.MarshalIndent(fn.Graph, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printGraph(fn.Graph)
		return nil
	},
}

// printGraph prints the graph in human-readable form.
func printGraph(g *cfg.Graph) {
	name := g.FunctionName
	if name == "" {
		name = cfg.AddrString(g.FunctionAddr)
	}
	fmt.Printf("=== CFG for function: %s ===\n", name)
	fmt.Printf("Entry Block: %s\n", cfg.AddrString(g.Entry))
	fmt.Printf("\nBlocks (%d):\n", len(g.Blocks))
	for _, addr := range g.BlockAddrs() {
		b := g.Blocks[addr]
		fmt.Printf("  %s (%d instructions)\n", cfg.AddrString(addr), len(b.Instructions))
		for _, cs := range b.Calls {
			argTexts := make([]string, len(cs.Args))
			for i, a := range cs.Args {
				argTexts[i] = a.Expr.String()
			}
			fmt.Printf("    call %s: %s(%s)\n",
				cfg.AddrString(cs.Addr), cs.Target, strings.Join(argTexts, ", "))
		}
	}

	fmt.Printf("\nEdges (%d):\n", len(g.Edges))
	for _, e := range g.Edges {
		if e.Predicate != nil {
			fmt.Printf("  %s --[%s]--> %s\n", cfg.AddrString(e.From), e.Predicate, cfg.AddrString(e.To))
		} else {
			fmt.Printf("  %s --> %s\n", cfg.AddrString(e.From), cfg.AddrString(e.To))
		}
	}
}

func init() {
	blocksCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(blocksCmd)
}
