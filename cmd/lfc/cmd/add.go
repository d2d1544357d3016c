package cmd

import (
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Track large files",
	Long:  "Hash each file into the cache, write its <path>.lfc sidecar, and add the original path to .gitignore.",
	Args:  usageArgs(cobra.MinimumNArgs(1)),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	return repo.Add(cmd.Context(), args...)
}
