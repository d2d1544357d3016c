package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aweris/lfc"
)

var statusCmd = &cobra.Command{
	Use:   "status [path...]",
	Short: "Classify tracked files",
	Long:  "Report every sidecar as materialized, cached-only, missing, or modified.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var stateColors = map[lfc.FileState]*color.Color{
	lfc.Materialized: color.New(color.FgGreen),
	lfc.CachedOnly:   color.New(color.FgYellow),
	lfc.Missing:      color.New(color.FgRed),
	lfc.Modified:     color.New(color.FgRed),
}

func runStatus(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	entries, err := repo.Status(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		if !quiet(cmd) {
			fmt.Println("(no tracked files)")
		}
		return nil
	}
	for _, e := range entries {
		state := e.State.String()
		if c, ok := stateColors[e.State]; ok {
			state = c.Sprint(state)
		}
		fmt.Printf("%-14s %10d  %s  %s\n", state, e.Size, e.Hash[:12], e.Path)
	}

	if len(args) == 0 {
		strays, err := repo.Strays(cmd.Context())
		if err != nil {
			return err
		}
		for _, path := range strays {
			fmt.Printf("%-14s %10s  %s  %s\n", color.YellowString("stray"), "-", strings.Repeat(" ", 12), path)
		}
	}
	return nil
}
