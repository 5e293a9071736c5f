package commands

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"cfquery/internal/config"
	"cfquery/internal/log"
	"cfquery/pkg/query"
	"cfquery/pkg/report"
	"cfquery/pkg/target"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths <artifact> <function>",
	Short: "Enumerate paths to a call target or block",
	Long: `Enumerates the execution paths from the function entry to a target:
a call to a named (or addressed) function via --call, or a specific
basic block via --block. Each path reports its block sequence, the
branch conditions taken, the calls made, and, for string-typed
arguments at the target call, a derived string constraint.

With neither --call nor --block, the call targets found in the
function are offered in an interactive picker.`,
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
		if callTarget != "" && blockTarget != "" {
			return fmt.Errorf("--call and --block are mutually exclusive")
		}

		var spec target.Spec
		switch {
		case callTarget != "":
			spec = target.CallSpec(callTarget)
		case blockTarget != "":
			addr, err := parseAddr(blockTarget)
			if err != nil {
				return err
			}
			spec = target.BlockSpec(addr)
		default:
			picked, err := pickCallTarget(fn.Graph.CallTargetNames())
			if err != nil {
				return err
			}
			spec = target.CallSpec(picked)
		}

		req := query.Request{Target: spec, MaxSeconds: cfg.MaxSeconds}

		if cmd.Flags().Changed("max-seconds") {
			req.MaxSeconds, _ = cmd.Flags().GetFloat64("max-seconds")
		}
		if sink, _ := cmd.Flags().GetString("sink"); sink != "" {
			addr, err := parseAddr(sink)
			if err != nil {
				return err
			}
			req.Sink = &addr
		}
		segments, _ := cmd.Flags().GetStringArray("segment")
		for _, s := range segments {
			addr, err := parseAddr(s)
			if err != nil {
				return err
			}
			req.Segments = append(req.Segments, addr)
		}

		resolver, err := newResolver(cfg)
		if err != nil {
			return err
		}

		logger := log.New()
		defer logger.Close()
		logger.Debug("searching", "function", fn.Name, "target", spec.Identifier)

		resp, err := query.FindPaths(fn.Graph, fn.Provider(), resolver, req)
		if err != nil {
			return err
		}
		if resp.Truncated {
			logger.Warn("search budget expired, result set is incomplete",
				"max_seconds", req.MaxSeconds)
		}

		opts := report.Options{
			ShowConditions:        cfg.ShowConditions,
			ShowCalls:             cfg.ShowCalls,
			ShowStringConstraints: cfg.ShowStringConstraints,
		}
		if cmd.Flags().Changed("conditions") {
			opts.ShowConditions, _ = cmd.Flags().GetBool("conditions")
		}
		if cmd.Flags().Changed("calls") {
			opts.ShowCalls, _ = cmd.Flags().GetBool("calls")
		}
		if cmd.Flags().Changed("stringconstraints") {
			opts.ShowStringConstraints, _ = cmd.Flags().GetBool("stringconstraints")
		}

		paths, accs := splitResults(resp)
		views := report.Build(paths, accs, opts)

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			out := struct {
				Paths     []report.PathView `json:"paths"`
				Truncated bool              `json:"truncated"`
			}{Paths: views, Truncated: resp.Truncated}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		for _, line := range report.Table(views, resp.Truncated) {
			fmt.Println(line)
		}
		return nil
	},
}

// pickCallTarget offers the function's call targets in an interactive
// select.
func pickCallTarget(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("function contains no resolved call targets")
	}
	options := make([]huh.Option[string], len(names))
	for i, n := range names {
		options[i] = huh.NewOption(n, n)
	}

	var picked string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Call target").
				Description("Select the call target to search paths to").
				Options(options...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("interactive prompt failed: %w", err)
	}
	return picked, nil
}

func init() {
	pathsCmd.Flags().String("call", "", "Call target name or hex address")
	pathsCmd.Flags().String("block", "", "Target block address")
	pathsCmd.Flags().String("sink", "", "Keep only paths through this block")
	pathsCmd.Flags().StringArray("segment", nil, "Keep only paths through this block (repeatable)")
	pathsCmd.Flags().Float64("max-seconds", 0, "Wall-clock search budget (0 = config default)")
	pathsCmd.Flags().Bool("conditions", true, "Show path conditions")
	pathsCmd.Flags().Bool("calls", true, "Show calls along each path")
	pathsCmd.Flags().Bool("stringconstraints", true, "Show derived string constraints")
	pathsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(pathsCmd)
}
