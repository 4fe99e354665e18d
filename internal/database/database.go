package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pinkflag/backend/internal/config"
	"github.com/pinkflag/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate runs AutoMigrate for all models, then installs the atomic
// credit functions. Function installation must come after AutoMigrate
// since the functions reference the generated tables.
func Migrate() error {
	if err := DB.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.CreditTransaction{},
		&models.Search{},
		&models.WebhookEvent{},
		&models.SystemLog{},
	); err != nil {
		return err
	}
	return InstallCreditFunctions(DB)
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
