package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/lfc"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lfc in the current directory",
	Long:  "Create .lfc/ with an empty cache and default config. Re-running on an existing repository preserves its config.",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	repo, err := lfc.Init(wd, repoOptions(cmd)...)
	if err != nil {
		return err
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stderr, "Initialized lfc repository at %s\n", repo.Root())
	}
	return nil
}
