package migration

import (
	"github.com/smallbiznis/utilitybill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		if !cfg.DBAutoMigrate {
			log.Warn("schema migration skipped", zap.String("type", cfg.DBType))
			return nil
		}
		return AutoMigrate(conn)
	}),
)
