package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/catalog"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the similarity results table",
	Long:  "Creates the results table and its indexes if they do not exist. Catalog tables are managed elsewhere.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		if cfg.Store.Driver != "postgres" {
			return eris.Errorf("migrate: store.driver %q has no results table; use postgres", cfg.Store.Driver)
		}

		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "migrate: connect")
		}
		defer pool.Close()

		if err := catalog.Migrate(ctx, pool, cfg.Catalog.ResultsTable); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("results table ready", zap.String("table", cfg.Catalog.ResultsTable))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
