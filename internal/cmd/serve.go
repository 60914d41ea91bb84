package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/audit"
	"github.com/svckit/svckit/internal/config"
	"github.com/svckit/svckit/internal/observability"
	"github.com/svckit/svckit/internal/server"
	"github.com/svckit/svckit/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

SIGINT or SIGTERM drains in-flight requests, flushes the audit queue and
closes the store before exiting.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err := observability.NewLogger(cfg.Logging.Format, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("initializing service",
			zap.String("version", versionInfo.Version),
			zap.String("addr", cfg.Server.Addr()),
			zap.String("store", cfg.Store.Path))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}

		var recorder *audit.Recorder
		if cfg.Middleware.Audit.Enabled {
			var sink audit.Sink = st
			if cfg.Middleware.Audit.Sink == "log" {
				sink = audit.NewLogSink(logger)
			}
			recorder = audit.NewRecorder(sink, cfg.Middleware.Audit.QueueSize, logger)
		}

		srv, err := server.New(cfg, logger, st, recorder)
		if err != nil {
			return fmt.Errorf("build server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown incomplete", zap.Error(err))
		}
		if recorder != nil {
			if err := recorder.Close(shutdownCtx); err != nil {
				logger.Warn("audit queue not fully drained", zap.Error(err))
			}
			if dropped := recorder.Dropped(); dropped > 0 {
				logger.Warn("audit records dropped during run", zap.Int64("dropped", dropped))
			}
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
