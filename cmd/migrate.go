package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hospital-app-server/internal/config"
	"hospital-app-server/internal/logger"
	"hospital-app-server/internal/models"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logger.New(cfg.LogLevel)

			db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.IsDev()})
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}

			log.WithComponent("migrate").Info("schema is up to date")
			return nil
		},
	}
}
