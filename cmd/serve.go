package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"docsearch/config/database"
	"docsearch/pkg/logger"
	"docsearch/router"
	"docsearch/socket"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API against the configured database.

The schema must already be migrated; serve never changes it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, dialect, err := database.Connect(ctx, cfg.DatabaseURL, cfg.ConnectRetries, cfg.ConnectRetryDelay.Duration)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Log.Info("Successfully connected to the database", zap.String("dialect", dialect.Name))

		hub := socket.NewHub()
		go hub.Run(ctx)

		srv := &http.Server{
			Addr: cfg.ListenAddr,
			Handler: router.Setup(db, router.Options{
				Dialect:           dialect,
				Hub:               hub,
				CORSAllowedOrigin: cfg.CORSAllowedOrigin,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Log.Info("Server starting", zap.String("addr", cfg.ListenAddr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
