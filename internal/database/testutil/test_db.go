// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/database"
)

// TestDBOption adjusts MustOpenTestDB.
type TestDBOption func(*database.Config, *bool)

// WithAutoMigrate creates every table before the handle is returned.
func WithAutoMigrate() TestDBOption {
	return func(_ *database.Config, migrate *bool) { *migrate = true }
}

// MustOpenTestDB returns a private in-memory SQLite handle closed at test cleanup. gorm warnings
// go to the test log.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := database.Config{Driver: "sqlite", Log: zaptest.NewLogger(t)}
	migrate := false
	for _, opt := range opts {
		opt(&cfg, &migrate)
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	if migrate {
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}
