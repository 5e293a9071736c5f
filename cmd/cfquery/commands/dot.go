package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cfquery/internal/config"
	"cfquery/internal/log"
	"cfquery/pkg/query"
	"cfquery/pkg/report"
	"cfquery/pkg/target"
)

// dotCmd represents the dot command
var dotCmd = &cobra.Command{
	Use:   "dot <artifact> <function>",
	Short: "Export found paths as a dot graph",
	Long: `Runs a path search and writes the resulting path graph in dot
format, restricted to the blocks appearing on at least one found path.
Rendering to pdf or an image is left to graphviz or an equivalent
external tool.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fn, err := loadFunction(args[0], args[1])
		if err != nil {
			return err
		}

		callTarget, _ := cmd.Flags().GetString("call")
		blockTarget, _ := cmd.Flags().GetString("block")
		var spec target.Spec
		switch {
		case callTarget != "" && blockTarget != "":
			return fmt.Errorf("--call and --block are mutually exclusive")
		case callTarget != "":
			spec = target.CallSpec(callTarget)
		case blockTarget != "":
			addr, err := parseAddr(blockTarget)
			if err != nil {
				return err
			}
			spec = target.BlockSpec(addr)
		default:
			return fmt.Errorf("one of --call or --block is required")
		}

		req := query.Request{Target: spec, MaxSeconds: cfg.MaxSeconds}
		if sink, _ := cmd.Flags().GetString("sink"); sink != "" {
			addr, err := parseAddr(sink)
			if err != nil {
				return err
			}
			req.Sink = &addr
		}

		resolver, err := newResolver(cfg)
		if err != nil {
			return err
		}
		resp, err := query.FindPaths(fn.Graph, fn.Provider(), resolver, req)
		if err != nil {
			return err
		}
		if resp.Truncated {
			logger := log.New()
			defer logger.Close()
			logger.Warn("search budget expired, result set is incomplete",
				"max_seconds", req.MaxSeconds)
		}

		name := fn.Name
		if name == "" {
			name = args[1]
		}
		paths, _ := splitResults(resp)
		model := report.DotFromPaths(fn.Graph, paths, name)
		model.Truncated = resp.Truncated

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			fmt.Print(model.Render())
			return nil
		}
		if err := os.WriteFile(output, []byte(model.Render()), 0o644); err != nil {
			return fmt.Errorf("writing dot file: %w", err)
		}
		fmt.Printf("wrote %s\n", output)
		return nil
	},
}

func init() {
	dotCmd.Flags().String("call", "", "Call target name or hex address")
	dotCmd.Flags().String("block", "", "Target block address")
	dotCmd.Flags().String("sink", "", "Keep only paths through this block")
	dotCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	RootCmd.AddCommand(dotCmd)
}
