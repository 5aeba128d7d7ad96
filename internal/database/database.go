package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finance-portal/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteDSN adds the connection parameters every sqlite connection needs:
// writers queue behind each other instead of failing with SQLITE_BUSY, and
// transactions take the write lock up front.
func sqliteDSN(path string) string {
	params := "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// Init opens the relational store selected by cfg.Driver.
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}
	gormCfg := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
	case config.DriverSQLite, "":
		// ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// connection pool
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if db.Dialector.Name() == "sqlite" {
		// SQLite performance and reliability tuning
		_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
		_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
