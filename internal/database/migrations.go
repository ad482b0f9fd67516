package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Account{},
		&models.User{},
		&models.VerificationToken{},
		&models.Order{},
		&models.OrderItem{},
		&models.AuditLog{},
		&models.RateCounter{},
	}
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(Models()...)
}
