package cmd

import (
	"os"

	"docsearch/config"
	"docsearch/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	databaseURL string
	logLevel    string

	// cfg is populated by the root PersistentPreRunE before any command runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "docsearch",
	Short:         "Document storage and keyword search service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if databaseURL != "" {
			loaded.DatabaseURL = databaseURL
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if err := logger.Init(loaded.LogLevel); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
