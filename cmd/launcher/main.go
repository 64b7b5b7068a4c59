// Command launcher is the CLI collaborator (§6.8): a thin wrapper
// around internal/engine that lists, installs, and launches versions,
// translating every returned error into one of the documented exit
// codes.
//
// Grounded on google-oss-rebuild's tools/ctl command-tree shape
// (a cobra root command, one file per subcommand under
// tools/ctl/command/) and its Config-then-Validate flag pattern.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/voxelforge/launcher-core/internal/config"
	"github.com/voxelforge/launcher-core/internal/engine"
	"github.com/voxelforge/launcher-core/internal/events"
	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

var (
	cfgFile string
	verbose bool
	flagCfg = defaultFlagConfig()
)

func defaultFlagConfig() config.Config {
	cfg := config.Default()
	cfg.StoreRoot = config.PlatformDefaultStoreRoot()
	return cfg
}

var rootCmd = &cobra.Command{
	Use:          "launcher",
	Short:        "Install and launch versions from a content-addressed local store",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	config.BindFlags(rootCmd, &flagCfg)
	rootCmd.PersistentFlags().AddFlagSet(rootCmd.Flags())

	rootCmd.AddCommand(versionsCmd, installCmd, launchCmd, supportBundleCmd)
}

// flagNames pairs each §6.7 cobra flag with the flagCfg field it
// writes into, so resolveConfig can tell which values the user
// actually typed on the command line versus which are left at
// BindFlags' defaults.
var flagNames = []string{
	"store-root", "objects-base-url", "index-url", "parallel-fetches",
	"connect-timeout-ms", "read-timeout-ms", "max-retries", "user-agent",
	"strict-assets",
}

// resolveConfig layers defaults, an optional --config YAML file, and
// explicit command-line flags, in that precedence order (lowest to
// highest). pflag has already written any flag the user passed
// straight into flagCfg by the time a subcommand's RunE runs; this
// only needs to decide, field by field, whether to keep that or the
// YAML file's value.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	out := defaultFlagConfig()
	if cfgFile != "" {
		fileCfg, err := config.LoadYAML(cfgFile, out)
		if err != nil {
			return config.Config{}, err
		}
		out = fileCfg
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	for _, name := range flagNames {
		if changed[name] {
			overrideField(&out, &flagCfg, name)
		}
	}

	if err := out.Validate(); err != nil {
		return config.Config{}, launchererr.Wrap(launchererr.KindBadArgument, "config", err)
	}
	return out, nil
}

func overrideField(out, flags *config.Config, flagName string) {
	switch flagName {
	case "store-root":
		out.StoreRoot = flags.StoreRoot
	case "objects-base-url":
		out.ObjectsBaseURL = flags.ObjectsBaseURL
	case "index-url":
		out.IndexURL = flags.IndexURL
	case "parallel-fetches":
		out.ParallelFetches = flags.ParallelFetches
	case "connect-timeout-ms":
		out.ConnectTimeoutMS = flags.ConnectTimeoutMS
	case "read-timeout-ms":
		out.ReadTimeoutMS = flags.ReadTimeoutMS
	case "max-retries":
		out.MaxRetries = flags.MaxRetries
	case "user-agent":
		out.UserAgent = flags.UserAgent
	case "strict-assets":
		out.StrictAssets = flags.StrictAssets
	}
}

func newEngine(cfg config.Config) (*engine.Engine, *events.Bus) {
	if verbose {
		telemetry.SetForTesting(telemetry.New(true))
	}
	bus := events.New()
	env := rules.CurrentEnv(runtime.GOOS, runtime.GOARCH, nil)
	return engine.New(cfg, env, bus), bus
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(launchererr.ExitCode(err))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}
