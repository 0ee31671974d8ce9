// Package db provides database connection and migration functionality.
package db

import (
	"fmt"
	stdlog "log"
	"os"

	"mining-game/internal/config"
	"mining-game/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a database connection using the provided configuration. It
// returns (nil, nil) when no database is configured; callers fall back to
// the in-memory ledger in that case.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}

	// Configure GORM logger (Silent to avoid cluttering output; only errors will be logged)
	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// TranslateError turns dialect-specific unique violations into
	// gorm.ErrDuplicatedKey, which the ledger relies on for its
	// one-award-per-transaction check.
	gormCfg := &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	}

	switch cfg.DBDialect {
	case config.DatabaseSchemePostgres:
		return gorm.Open(postgres.Open(cfg.DBDsn), gormCfg)
	case config.DatabaseSchemeSQLite:
		return gorm.Open(sqlite.Open(cfg.DBDsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB dialect: %s", cfg.DBDialect)
	}
}

// AutoMigrate runs database migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&models.Transaction{},
		&models.Award{},
	)
}
