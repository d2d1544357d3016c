package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aweris/lfc"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <git-url> [dir]",
	Short: "git clone, then pull all tracked files",
	Long:  "Clone the repository with git, fetch every sidecar-referenced blob from the configured remote, and materialize the working tree.",
	Args:  usageArgs(cobra.RangeArgs(1, 2)),
	RunE:  runClone,
}

func init() {
	cloneCmd.Flags().Bool("bare", false, "clone a bare repository (skips the pull)")
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	url := args[0]
	dir := ""
	if len(args) > 1 {
		dir = args[1]
	}
	bare, _ := cmd.Flags().GetBool("bare")

	barOpt, opts := transferProgress(cmd)
	_, summary, err := lfc.Clone(cmd.Context(), url, dir, bare, append(repoOptions(cmd), opts...)...)
	finishProgress(barOpt)
	if err != nil {
		return err
	}
	if summary != nil {
		printSummary(cmd, summary)
		return summary.Err()
	}
	return nil
}
