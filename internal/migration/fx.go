package migration

import (
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, billing *config.BillingConfigHolder, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType); err != nil {
			return err
		}
		log.Info("database schema is up to date", zap.String("db_type", cfg.DBType))

		return seed.EnsureDefaultLetter(conn, billing.Get().GccDefaults.LetterID)
	}),
)
