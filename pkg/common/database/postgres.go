package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/salespulse/platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenPostgres opens a pool for one set of credentials. Callers own the
// returned handle and must Close it on shutdown.
func OpenPostgres(dsn string, maxOpenConns int, role string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Log.WithError(err).WithField("role", role).Error("Failed to connect to PostgreSQL")
		return nil, fmt.Errorf("connecting to postgres (%s): %w", role, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Log.WithField("role", role).Info("Connected to PostgreSQL")
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
