package config

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"delivery_tracker/internal/logger"
	"delivery_tracker/internal/models"
)

// OpenDB connects to the route cache database and migrates its schema.
func OpenDB(cfg DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(logger.GormLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("config.OpenDB connect: %w", err)
	}

	if err := db.AutoMigrate(&models.Route{}); err != nil {
		return nil, fmt.Errorf("config.OpenDB auto-migrate: %w", err)
	}
	return db, nil
}
