package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list (-l FILE | -u URL)",
		Short: "List the scripts a run would process",
		Long: `Resolve the JavaScript URLs from a links file or a page and print them
without fetching any sourcemap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			args, err := buildRunArgs(ctx)
			if err != nil {
				return err
			}

			jobs, err := workflow.ListJobs(ctx, args)
			if err != nil {
				return err
			}

			slog.Debug("Listed jobs", "count", len(jobs))

			return nil
		},
	}

	configureJobSourceFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
