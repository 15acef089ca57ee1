package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the session cache database per configuration and migrates
// the record schema. SQLite is the default; Postgres is selectable for
// deployments where the cache must survive the process.
func InitDB(cfg *config.SessionCacheConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormConfig)
	case "sqlite", "":
		db, err = openSQLite(cfg.Path, gormConfig)
	default:
		db, err = openSQLite(cfg.Path, gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&domain.FileSessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session cache schema: %w", err)
	}
	return db, nil
}

func openSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = "./data/session.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session cache directory: %w", err)
	}
	return gorm.Open(sqlite.Open(path), gormConfig)
}
