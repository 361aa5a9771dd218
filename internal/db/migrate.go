package db

import (
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Driver{},
		&model.DriverDocument{},
		&model.VerificationAttempt{},
		&model.FacialVerification{},
		&model.ActivityLog{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	// "most recent attempt" lookups order by (driver_id, created_at, id)
	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_verification_attempts_driver_order ON verification_attempts (driver_id, created_at, id)",
	).Error; err != nil {
		logger.Error("Failed to create attempt ordering index", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
