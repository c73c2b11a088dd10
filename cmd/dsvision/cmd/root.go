// Package cmd implements the CLI commands for dsvision.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/destenson/dsvision/internal/config"
	"github.com/destenson/dsvision/internal/observability"
	"github.com/destenson/dsvision/internal/version"
)

var (
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "dsvision",
	Short:   "Multi-stream video analytics runtime",
	Version: version.Short(),
	Long: `dsvision runs a backend-abstracted video pipeline across many sources
at once: per-stream detection, centroid tracking, a latency-bounded
metadata bridge, and an on-screen overlay, scheduled by priority under a
resource budget.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./, ./configs, /etc/dsvision, $HOME/.dsvision)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	mustBindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig seeds viper's defaults; the actual typed Load happens per
// subcommand via config.Load, since commands differ in which config file
// they need (run wants the full tree, config dump wants defaults only).
func initConfig() {
	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("DSVISION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// initLogging configures the global slog logger from internal/observability
// using whatever logging.* values viper currently holds (flags, env, or
// defaults — the config file itself is read per-command via config.Load).
func initLogging() error {
	cfg := config.LoggingConfig{
		Level:      viper.GetString("logging.level"),
		Format:     viper.GetString("logging.format"),
		AddSource:  viper.GetBool("logging.add_source"),
		TimeFormat: viper.GetString("logging.time_format"),
	}
	observability.SetDefault(observability.NewLogger(cfg))
	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding
// fails, keeping the call sites above free of repetitive error checks.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
