package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage remote caches",
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a remote cache",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE:  runRemoteAdd,
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a remote cache",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runRemoteRemove,
}

var remoteSetURLCmd = &cobra.Command{
	Use:   "set-url <name> <url>",
	Short: "Change a remote's URL",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE:  runRemoteSetURL,
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote caches",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runRemoteList,
}

func init() {
	remoteAddCmd.Flags().Bool("default", false, "make this remote the default")
	remoteAddCmd.Flags().String("kind", "", "backend kind hint: local|ssh|http")
	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteSetURLCmd, remoteListCmd)
	rootCmd.AddCommand(remoteCmd)
}

func runRemoteAdd(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	makeDefault, _ := cmd.Flags().GetBool("default")
	kind, _ := cmd.Flags().GetString("kind")
	return repo.AddRemote(args[0], args[1], kind, makeDefault)
}

func runRemoteRemove(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	return repo.RemoveRemote(args[0])
}

func runRemoteSetURL(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	return repo.SetRemoteURL(args[0], args[1])
}

func runRemoteList(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	bold := color.New(color.Bold)
	for _, info := range repo.Remotes() {
		marker, display := " ", info.Name
		if info.Default {
			marker, display = "*", bold.Sprint(info.Name)
		}
		fmt.Printf("%s %s\t%s\n", marker, display, info.URL)
	}
	return nil
}
