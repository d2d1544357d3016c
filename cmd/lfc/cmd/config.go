package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/lfc"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or write repository configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a config value",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	value, ok := repo.ConfigGet(args[0])
	if !ok {
		return lfc.Errorf(lfc.KindUsage, "config: key %q not set", args[0])
	}
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	repo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	return repo.ConfigSet(args[0], args[1])
}
