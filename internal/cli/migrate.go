package cli

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres memory schema",
	}

	run := func(step func(*conversation_memory.MigrationManager, logger.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Database.Validate(); err != nil {
				return fmt.Errorf("invalid database config: %w", err)
			}
			log := newLogger(cmd, cfg)

			pool, err := pgxpool.New(cmd.Context(), cfg.Database.GetConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to postgres: %w", err)
			}
			defer pool.Close()

			mm := conversation_memory.NewMigrationManager(pool, log)
			defer func() { _ = mm.Close() }()
			return step(mm, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(mm *conversation_memory.MigrationManager, _ logger.Logger) error {
				return mm.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: run(func(mm *conversation_memory.MigrationManager, _ logger.Logger) error {
				return mm.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(mm *conversation_memory.MigrationManager, log logger.Logger) error {
					version, dirty, err := mm.Version()
					if err != nil {
						return fmt.Errorf("failed to read schema version: %w", err)
					}
					log.Info("Schema version", logger.IntField("version", int(version)), logger.BoolField("dirty", dirty)) //nolint:gosec // schema versions are small
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return err
				})(cmd, args)
			},
		},
	)
	return cmd
}
