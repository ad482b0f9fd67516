package models

import "time"

// User is a person able to sign in. A user belongs to exactly one Account once registration
// has committed; AccountID is nil only inside the bootstrap transaction.
type User struct {
	BaseModel

	Name          string `gorm:"not null" json:"name"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Password      string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"not null;default:false" json:"email_verified"`

	AccountID *string  `gorm:"type:uuid;index" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `json:"-"`
}

// IsOwnerOf reports whether the user created the given account.
func (u *User) IsOwnerOf(account *Account) bool {
	return u != nil && account != nil && account.OwnerID == u.ID
}
