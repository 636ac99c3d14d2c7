package cli

import (
	"coder_edu_assessment/internal/app"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/pkg/database"
	"coder_edu_assessment/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCmd applies the gorm schema migration and exits.
func NewMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(*configDir)
		},
	}
}

func runMigrations(configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.Server.Mode)
	defer logger.Log.Sync()

	db, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Log.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
	return nil
}
