package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Move cache blobs through archives",
	Long:  "Export referenced blobs to a zstd-compressed archive and import them elsewhere, for air-gapped transport.",
}

var bundleExportCmd = &cobra.Command{
	Use:   "export <file> [path...]",
	Short: "Write referenced blobs to an archive",
	Args:  usageArgs(cobra.MinimumNArgs(1)),
	RunE:  runBundleExport,
}

var bundleImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore blobs from an archive",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runBundleImport,
}

func init() {
	bundleCmd.AddCommand(bundleExportCmd, bundleImportCmd)
	rootCmd.AddCommand(bundleCmd)
}

func runBundleExport(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	n, err := repo.ExportBundle(cmd.Context(), out, args[1:]...)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(args[0])
		return err
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stderr, "bundle: exported %d blob(s) to %s\n", n, args[0])
	}
	return nil
}

func runBundleImport(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	n, err := repo.ImportBundle(cmd.Context(), in)
	if err != nil {
		return err
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stderr, "bundle: imported %d blob(s)\n", n)
	}
	return nil
}
