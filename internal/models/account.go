package models

import "gorm.io/datatypes"

// Account is the restaurant workspace that owns orders. OwnerID points back at the user that
// registered it; the column is unique but intentionally carries no foreign key so the
// users/accounts pair can be created inside a single transaction on every driver.
type Account struct {
	BaseModel

	Name     string         `gorm:"not null" json:"name"`
	OwnerID  string         `gorm:"type:uuid;uniqueIndex;not null" json:"owner_id"`
	Settings datatypes.JSON `json:"settings,omitempty"`
}
