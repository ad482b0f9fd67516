package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationToken stores the hash of an outstanding email verification token. A user has at
// most one row; consuming the token deletes it.
type VerificationToken struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *VerificationToken) BeforeCreate(*gorm.DB) error {
	return assignID(&v.ID)
}

// Expired reports whether the token is no longer usable at the given instant.
func (v *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
