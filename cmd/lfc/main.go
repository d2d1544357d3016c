package main

import (
	"fmt"
	"os"

	"github.com/aweris/lfc"
	"github.com/aweris/lfc/cmd/lfc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lfc:", err)
		os.Exit(lfc.ExitCode(err))
	}
}
