package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a tracked file's blob (or its hash)",
	Long:  "Resolve the sidecar for <path> and stream the blob from the cache to stdout. --ref reads the sidecar at a git revision; --hash prints only the digest.",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().String("ref", "", "read the sidecar at this git ref")
	showCmd.Flags().Bool("hash", false, "print the resolved hash instead of the content")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	ref, _ := cmd.Flags().GetString("ref")
	hashOnly, _ := cmd.Flags().GetBool("hash")

	if hashOnly {
		rec, err := repo.Resolve(cmd.Context(), args[0], ref)
		if err != nil {
			return err
		}
		fmt.Println(rec.SHA256)
		return nil
	}

	rc, _, err := repo.Show(cmd.Context(), args[0], ref)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(os.Stdout, rc)
	return err
}
