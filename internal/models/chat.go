package models

import "time"

// TripChat is the discussion channel attached to a trip. Creation is not
// atomic against concurrent callers, so transiently more than one row may
// exist per trip; reconciliation keeps the earliest and deletes the rest.
type TripChat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TripID    uint      `gorm:"index;not null" json:"trip_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TripMessage is a single chat message. Messages are immutable once written;
// ordering is by (created_at, id).
type TripMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"size:36;index;not null" json:"chat_id"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
