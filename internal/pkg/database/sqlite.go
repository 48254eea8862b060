package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/logger"
)

// NewSQLite opens the embedded SQLite store and migrates the given models.
//
// SQLite allows a single writer, and every connection to ":memory:" sees its
// own database, so the pool is pinned to one connection.
func NewSQLite(cfg config.SQLiteConfig, models ...any) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
	}

	logger.Info("opened SQLite store", zap.String("dsn", cfg.DSN))

	return db, nil
}
