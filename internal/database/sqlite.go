package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, memory, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if memory {
		// Shared-cache memory databases report table locks under concurrent writers.
		sqlDB.SetMaxOpenConns(1)
	}
	// Explicit DSNs may omit _foreign_keys; cascades depend on it.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// sqliteDSN returns the DSN and whether it names an in-memory database. An empty path gets a
// private named memory database so separate handles never share tables.
func sqliteDSN(cfg Config) (string, bool, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory"), nil
	}

	query := url.Values{"_foreign_keys": {"1"}}
	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		query.Set("mode", "memory")
		query.Set("cache", "shared")
		return "file:memdb-" + uuid.NewString() + "?" + query.Encode(), true, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	query.Set("_journal_mode", "WAL")
	query.Set("_busy_timeout", "5000")
	return "file:" + filepath.ToSlash(path) + "?" + query.Encode(), false, nil
}
