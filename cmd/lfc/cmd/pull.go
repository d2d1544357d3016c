package cmd

import (
	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull [path...]",
	Short: "Fetch missing blobs and materialize tracked files",
	Long:  "Download sidecar-referenced blobs absent from the local cache, verify their digests, and rebuild the working-tree files.",
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	bar, opts := transferProgress(cmd)
	repo, err := openRepo(cmd, opts...)
	if err != nil {
		return err
	}

	summary, err := repo.Pull(cmd.Context(), args...)
	finishProgress(bar)
	if summary != nil {
		printSummary(cmd, summary)
	}
	if err != nil {
		return err
	}
	return summary.Err()
}
