package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove unreferenced cache blobs",
	Long:  "Delete cache blobs no sidecar references, plus stale temp files. --dry-run reports without deleting.",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().Bool("dry-run", false, "report what would be removed")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	removed, err := repo.GC(cmd.Context(), dryRun)
	if err != nil {
		return err
	}
	for _, hash := range removed {
		fmt.Println(hash)
	}
	if !quiet(cmd) {
		verb := "removed"
		if dryRun {
			verb = "would remove"
		}
		fmt.Fprintf(os.Stderr, "gc: %s %d blob(s)\n", verb, len(removed))
	}
	return nil
}
