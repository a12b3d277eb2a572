package cli

import (
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/spf13/cobra"
)

// NewMigrateCommand applies the goose migrations to PostgreSQL.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the PostgreSQL document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := rootOpts.logger(cmd)

			s, err := docstore.OpenPostgres(ctx, pick(dsn, rootOpts.Config.DatabaseDSN))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.RunMigrations(ctx); err != nil {
				return err
			}
			logger.Info(ctx, "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dsn, "dsn", "d", "", "PostgreSQL DSN (overrides config)")

	return cmd
}
