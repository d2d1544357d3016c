package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/cheggaaa/pb"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aweris/lfc"
	"github.com/aweris/lfc/internal/transfer"
)

var pushCmd = &cobra.Command{
	Use:   "push [path...]",
	Short: "Upload tracked blobs to a remote cache",
	Long:  "Send every cached blob referenced by tracked sidecars to the remote, skipping objects already present there.",
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	bar, opts := transferProgress(cmd)
	repo, err := openRepo(cmd, opts...)
	if err != nil {
		return err
	}

	summary, err := repo.Push(cmd.Context(), args...)
	finishProgress(bar)
	if err != nil {
		return err
	}
	printSummary(cmd, summary)
	return summary.Err()
}

// transferProgress wires a byte-count progress bar into the repo options
// when stderr is a terminal and quiet is off.
func transferProgress(cmd *cobra.Command) (*pb.ProgressBar, []lfc.Option) {
	if quiet(cmd) || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil, nil
	}
	bar := pb.New64(0)
	bar.SetUnits(pb.U_BYTES)
	bar.Output = os.Stderr
	bar.ShowTimeLeft = false
	bar.Start()
	var mu sync.Mutex
	return bar, []lfc.Option{lfc.WithProgress(func(_ string, n int64) {
		mu.Lock()
		bar.SetTotal64(bar.Total + n)
		mu.Unlock()
		bar.Add64(n)
	})}
}

func finishProgress(bar *pb.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}

func printSummary(cmd *cobra.Command, summary *lfc.TransferSummary) {
	if quiet(cmd) {
		return
	}
	for _, res := range summary.Results {
		line := fmt.Sprintf("%s  %s", res.Hash, res.Outcome)
		if res.Outcome == transfer.Failed && res.Err != nil {
			if res.Corrupt() {
				line = fmt.Sprintf("%s  failed(corrupt)", res.Hash)
			} else {
				line = fmt.Sprintf("%s  failed(%v)", res.Hash, res.Err)
			}
		}
		fmt.Println(line)
	}
	moved, skipped, failed := summary.Counts()
	fmt.Fprintf(os.Stderr, "%s: %d transferred, %d skipped, %d failed\n",
		summary.Remote, moved, skipped, failed)
}
