package models

import "time"

// RateCounter is one fixed window of the SQL rate limit store.
type RateCounter struct {
	Key        string    `gorm:"primaryKey;size:256"`
	Hits       int64     `gorm:"not null;default:0"`
	WindowEnds time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time
}

// Open reports whether the window still accepts hits at now.
func (r *RateCounter) Open(now time.Time) bool {
	return now.Before(r.WindowEnds)
}
