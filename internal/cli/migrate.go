package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/photo-hunt/internal/config"
	"github.com/gokatarajesh/photo-hunt/internal/db/migrations"
	"github.com/gokatarajesh/photo-hunt/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply the postgres schema for the postgres backend",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{migrations.CommandUp, migrations.CommandDown, migrations.CommandStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := migrations.CommandUp
			if len(args) == 1 {
				command = args[0]
			}

			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg.Name, cfg.Env).With().Str("component", "migrate").Logger()

			db, err := migrations.Open(cfg.Postgres.DSN())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			logger.Info().
				Str("host", cfg.Postgres.Host).
				Int("port", cfg.Postgres.Port).
				Str("database", cfg.Postgres.Database).
				Str("command", command).
				Msg("connected to database")

			if err := migrations.Run(ctx, db, command); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			logger.Info().Msg("migrations finished")
			return nil
		},
	}
}
