package cmd

import (
	"github.com/spf13/cobra"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view REPORT",
		Short: "View a saved run report",
		Long:  "Print the per-script results and totals of a report written with --report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.ViewReport(cmd.Context(), m.Path(args[0]))
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
