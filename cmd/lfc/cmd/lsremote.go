package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsRemoteCmd = &cobra.Command{
	Use:   "ls-remote [name]",
	Short: "List hashes present at a remote cache",
	Args:  usageArgs(cobra.MaximumNArgs(1)),
	RunE:  runLsRemote,
}

func init() {
	rootCmd.AddCommand(lsRemoteCmd)
}

func runLsRemote(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	hashes, err := repo.LsRemote(cmd.Context(), name)
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		fmt.Println(hash)
	}
	return nil
}
