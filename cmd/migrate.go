package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/civic-complaints-api/pkg/config"
	"github.com/noah-isme/civic-complaints-api/pkg/database"
	"github.com/noah-isme/civic-complaints-api/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := database.MigrateUp(cfg.DatabaseURL(), cfg.Database.MigrationsPath, logr); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
