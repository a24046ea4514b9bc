package system

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/pkg/database"
)

func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the Postgres databases listed in server.databases",
		Long: `Connects to the maintenance "postgres" database and creates every
database named in server.databases that does not exist yet. SQLite
deployments need nothing here and the command exits without work.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if err := database.InitializeDatabases(cfg); err != nil {
				return fmt.Errorf("create databases: %w", err)
			}
			if strings.EqualFold(cfg.Database.Driver, "sqlite") {
				cmd.Println("sqlite: nothing to create")
				return nil
			}
			cmd.Printf("databases ready: %v\n", cfg.Server.Databases)
			return nil
		},
	}
}
