package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/lfc"
	"github.com/aweris/lfc/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "lfc",
	Short:         "Large File Control",
	Long:          "Track large files next to git: pointer sidecars in the repo, bytes in a content-addressed cache synced with remote caches.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. SIGINT/SIGTERM cancel the command context so
// in-flight transfers stop at their next I/O boundary and temps get cleaned
// up.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initEnv)

	pf := rootCmd.PersistentFlags()
	pf.StringP("remote", "r", "", "remote to transfer against (default: default-remote)")
	pf.IntP("jobs", "j", 0, "transfer concurrency (default 4)")
	pf.String("mode", "link", "post-add working-tree mode: pointer|link|copy")
	pf.Bool("force", false, "overwrite modified working-tree files")
	pf.BoolP("quiet", "q", false, "suppress progress and info output")
	pf.BoolP("verbose", "v", false, "enable debug output")
	pf.String("cache-dir", "", "cache directory (default: .lfc/cache)")
	pf.String("config", "", "config file (default: .lfc/config)")

	viper.BindPFlag("cache_dir", pf.Lookup("cache-dir"))
	viper.BindPFlag("config", pf.Lookup("config"))
	viper.BindPFlag("jobs", pf.Lookup("jobs"))

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return lfc.Wrap(lfc.KindUsage, "lfc", "", err)
	})
}

func initEnv() {
	viper.SetEnvPrefix("LFC")
	viper.AutomaticEnv()
}

// usageArgs turns cobra's positional-arg failures into usage-kind errors so
// they exit with the right status.
func usageArgs(validator cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validator(cmd, args); err != nil {
			return lfc.Wrap(lfc.KindUsage, cmd.Name(), "", err)
		}
		return nil
	}
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Flags().GetBool("quiet")
	return q
}

// repoOptions assembles library options from flags and LFC_* environment.
func repoOptions(cmd *cobra.Command) []lfc.Option {
	flags := cmd.Flags()
	opts := []lfc.Option{}

	if dir := viper.GetString("cache_dir"); dir != "" {
		opts = append(opts, lfc.WithCacheDir(dir))
	}
	if cfg := viper.GetString("config"); cfg != "" {
		opts = append(opts, lfc.WithConfigPath(cfg))
	}
	if jobs := viper.GetInt("jobs"); jobs > 0 {
		opts = append(opts, lfc.WithJobs(jobs))
	}
	if ssh := viper.GetString("ssh"); ssh != "" {
		opts = append(opts, lfc.WithSSHCommand(ssh))
	}
	if name, _ := flags.GetString("remote"); name != "" {
		opts = append(opts, lfc.WithRemote(name))
	}
	if mode, _ := flags.GetString("mode"); mode != "" {
		opts = append(opts, lfc.WithMode(lfc.Mode(mode)))
	}
	if force, _ := flags.GetBool("force"); force {
		opts = append(opts, lfc.WithForce(true))
	}

	level := "warn"
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = "debug"
	} else if quiet(cmd) {
		level = "error"
	}
	opts = append(opts, lfc.WithLogger(logging.New(level)))
	return opts
}

func openRepo(cmd *cobra.Command, extra ...lfc.Option) (*lfc.Repo, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return lfc.Open(wd, append(repoOptions(cmd), extra...)...)
}
