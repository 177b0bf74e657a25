// Package cli implements the forge command surface. It stays thin: all
// engine behavior lives in the library packages.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgebuild/forge/pkg/logger"
)

var (
	cfgFile string
	verbose bool

	console = logger.NewConsoleLogger()
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Per-package sandboxed build environments",
	Long: `Forge synthesizes a deterministic build environment for each package
of a resolved dependency graph and runs build actions in isolated
child processes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initViper() {
	viper.SetEnvPrefix("FORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("CONFIG")
	}
}

func newLogger() logger.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New("", level)
}
