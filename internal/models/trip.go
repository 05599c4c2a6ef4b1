package models

import (
	"time"

	"gorm.io/datatypes"
)

// TripStatus enumerates the lifecycle states of a trip listing.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// ParticipantStatus enumerates the admission states of a join request.
type ParticipantStatus string

const (
	ParticipantStatusPending  ParticipantStatus = "pending"
	ParticipantStatusApproved ParticipantStatus = "approved"
	ParticipantStatusRejected ParticipantStatus = "rejected"
)

// Valid reports whether the status is one of the known admission states.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantStatusPending, ParticipantStatusApproved, ParticipantStatusRejected:
		return true
	}
	return false
}

// Trip represents a published travel plan with a bounded number of seats.
//
// SpotsFilled is a derived cache of the count of approved participants. It is
// recomputed by full recount on every admission transition and must never be
// treated as the source of truth.
type Trip struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	CreatorID   uint              `gorm:"index;not null" json:"creator_id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Destination string            `gorm:"size:255;not null" json:"destination"`
	Description string            `gorm:"type:text" json:"description"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      time.Time         `json:"ends_at"`
	Spots       int               `gorm:"not null" json:"spots"`
	SpotsFilled int               `gorm:"not null;default:0" json:"spots_filled"`
	Status      TripStatus        `gorm:"size:32;not null;default:active" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TripParticipant tracks one user's admission state for one trip.
// At most one row exists per (trip, user) pair.
type TripParticipant struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	TripID    uint              `gorm:"uniqueIndex:idx_trip_user;not null" json:"trip_id"`
	UserID    uint              `gorm:"uniqueIndex:idx_trip_user;not null" json:"user_id"`
	Status    ParticipantStatus `gorm:"size:32;not null;default:pending" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
