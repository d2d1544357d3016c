package cmd

import (
	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout [path...]",
	Short: "Rebuild working-tree files from sidecars",
	Long:  "Materialize each tracked file from the local cache. With auto-pull on, cache misses are fetched from the default remote first.",
	RunE:  runCheckout,
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	return repo.Checkout(cmd.Context(), args...)
}
