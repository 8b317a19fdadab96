package migration

import (
	"github.com/lumenis/lumenis/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(runOnStartup),
)

func runOnStartup(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if cfg.DBType != "postgres" {
		log.Info("skipping embedded migrations", zap.String("db_type", cfg.DBType))
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
