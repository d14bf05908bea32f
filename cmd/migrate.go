package cmd

import (
	"bytes"
	"fmt"

	"docsearch/config"
	"docsearch/config/database"
	"docsearch/internal/migrate"
	"docsearch/pkg/logger"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scriptFrom   int
	scriptOutput string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations to the configured database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		db, dialect, err := database.Connect(cmd.Context(), cfg.DatabaseURL, cfg.ConnectRetries, cfg.ConnectRetryDelay.Duration)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := migrate.NewRunner(dialect).Up(cmd.Context(), db)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			cmd.Println("Schema is up to date")
			return nil
		}
		for _, m := range applied {
			cmd.Printf("Applied %s\n", m.Name)
		}
		logger.Log.Info("Migrations applied", zap.Int("count", len(applied)), zap.Int("version", applied[len(applied)-1].Version))
		return nil
	},
}

var migrateSQLCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the migration SQL without connecting to the database",
	Long: `Render the pending migrations as a single transactional SQL script.

Only the dialect is taken from the database URL; no connection is made.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseURL == "" {
			return config.ErrMissingDatabaseURL
		}
		if scriptFrom < 0 {
			return fmt.Errorf("--from must be 0 or greater, got %d", scriptFrom)
		}
		dialect, _, err := database.ParseURL(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := migrate.NewRunner(dialect).Script(&buf, scriptFrom); err != nil {
			return err
		}
		if scriptOutput == "" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := atomic.WriteFile(scriptOutput, &buf); err != nil {
			return fmt.Errorf("writing %s: %w", scriptOutput, err)
		}
		logger.Log.Info("Migration script written", zap.String("path", scriptOutput))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version and pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		db, dialect, err := database.Connect(cmd.Context(), cfg.DatabaseURL, cfg.ConnectRetries, cfg.ConnectRetryDelay.Duration)
		if err != nil {
			return err
		}
		defer db.Close()

		version, pending, err := migrate.NewRunner(dialect).Status(cmd.Context(), db)
		if err != nil {
			return err
		}
		cmd.Printf("Current version: %d\n", version)
		if len(pending) == 0 {
			cmd.Println("No pending migrations")
			return nil
		}
		cmd.Println("Pending:")
		for _, m := range pending {
			cmd.Printf("  %s\n", m.Name)
		}
		return nil
	},
}

func init() {
	migrateSQLCmd.Flags().IntVar(&scriptFrom, "from", 0, "schema version the target database is at")
	migrateSQLCmd.Flags().StringVarP(&scriptOutput, "output", "o", "", "write the script to this file instead of stdout")

	migrateCmd.AddCommand(migrateUpCmd, migrateSQLCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
