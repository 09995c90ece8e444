// Package commands implements the membuf CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/membufio/membuf/internal/logger"
	"github.com/membufio/membuf/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "membuf",
	Short: "membuf - prebuffering in-memory stream cache",
	Long: `membuf wraps a seekable byte source (local file or S3 object) in an
in-memory prebuffering cache: a background producer reads ahead into
4 MiB blocks while the consumer reads, peeks, and seeks against the
buffered data.

Use "membuf [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrf("Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration named by --config and initializes
// logging from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
