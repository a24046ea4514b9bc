package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/service/catalog"
	"github.com/Alijeyrad/notifyhub/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	var skipSeed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and seed configured mediums and actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			fmt.Println("Running migrations.")
			client, err := database.NewEntClient(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to create repo client: %w", err)
			}
			defer client.Close()

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := database.Migrate(ctx, client); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if !skipSeed {
				slog.Info("Seeding catalog...")
				mediums, actions, err := catalog.Seed(ctx, catalog.New(client), cfg.Catalog)
				if err != nil {
					return fmt.Errorf("failed to seed catalog: %w", err)
				}
				slog.Info("catalog seeded", "mediums", mediums, "actions", actions)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "Only apply the schema")

	return cmd
}
