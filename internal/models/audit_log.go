package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records security relevant events such as registrations, logins and verifications.
type AuditLog struct {
	ID        string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    *string           `gorm:"type:uuid;index" json:"user_id"`
	AccountID *string           `gorm:"type:uuid;index" json:"account_id"`
	Email     string            `json:"email"`
	Action    string            `gorm:"not null;index" json:"action"`
	Result    string            `gorm:"not null" json:"result"`
	IPAddress string            `json:"ip_address"`
	UserAgent string            `json:"user_agent"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	return assignID(&a.ID)
}
