package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/config"
	"github.com/svckit/svckit/internal/observability"
	"github.com/svckit/svckit/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger, err := observability.NewLogger(cfg.Logging.Format, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}

		logger.Info("migrations applied", zap.String("store", cfg.Store.Path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
