package models

import "time"

// Notification represents an admission-related notice targeted to a user.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	TripID    uint      `gorm:"index" json:"trip_id"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
