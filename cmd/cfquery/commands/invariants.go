package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cfquery/pkg/report"
)

// invariantsCmd represents the invariants command
var invariantsCmd = &cobra.Command{
	Use:   "invariants <artifact> <function>",
	Short: "Show the per-block invariant facts of a function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := loadFunction(args[0], args[1])
		if err != nil {
			return err
		}
		for _, line := range report.InvariantTable(fn.Graph, fn.Provider()) {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(invariantsCmd)
}
