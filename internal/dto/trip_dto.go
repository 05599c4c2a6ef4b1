package dto

import (
	"time"

	"github.com/wanderly/wanderly-api/internal/models"
)

// TripCreateRequest is the payload to publish a new trip.
type TripCreateRequest struct {
	Title       string            `json:"title" validate:"required,min=3,max=255"`
	Destination string            `json:"destination" validate:"required,min=2,max=255"`
	Description string            `json:"description" validate:"omitempty,max=8000"`
	StartsAt    time.Time         `json:"starts_at" validate:"required"`
	EndsAt      time.Time         `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Spots       int               `json:"spots" validate:"required,min=1,max=500"`
	Metadata    map[string]string `json:"metadata" validate:"omitempty,max=16"`
}

// TripUpdateRequest updates mutable trip fields. Spots may only grow or shrink
// down to the current filled count; the service enforces that.
type TripUpdateRequest struct {
	Title       *string            `json:"title" validate:"omitempty,min=3,max=255"`
	Destination *string            `json:"destination" validate:"omitempty,min=2,max=255"`
	Description *string            `json:"description" validate:"omitempty,max=8000"`
	StartsAt    *time.Time         `json:"starts_at"`
	EndsAt      *time.Time         `json:"ends_at"`
	Spots       *int               `json:"spots" validate:"omitempty,min=1,max=500"`
	Status      *models.TripStatus `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

// TripListQuery filters the trip browse endpoint.
type TripListQuery struct {
	Destination string `query:"destination" validate:"omitempty,max=255"`
	Status      string `query:"status" validate:"omitempty,oneof=active completed cancelled"`
	OnlyOpen    bool   `query:"only_open"`
	Page        int    `query:"page" validate:"omitempty,min=1"`
	PageSize    int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// TripResponse is the serialized representation of a trip.
type TripResponse struct {
	ID          uint              `json:"id"`
	CreatorID   uint              `json:"creator_id"`
	Title       string            `json:"title"`
	Destination string            `json:"destination"`
	Description string            `json:"description,omitempty"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      time.Time         `json:"ends_at"`
	Spots       int               `json:"spots"`
	SpotsFilled int               `json:"spots_filled"`
	Status      models.TripStatus `json:"status"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewTripResponse converts a model into a DTO.
func NewTripResponse(trip models.Trip) TripResponse {
	return TripResponse{
		ID:          trip.ID,
		CreatorID:   trip.CreatorID,
		Title:       trip.Title,
		Destination: trip.Destination,
		Description: trip.Description,
		StartsAt:    trip.StartsAt,
		EndsAt:      trip.EndsAt,
		Spots:       trip.Spots,
		SpotsFilled: trip.SpotsFilled,
		Status:      trip.Status,
		Metadata:    trip.Metadata,
		CreatedAt:   trip.CreatedAt,
	}
}

// NewTripResponseSlice converts a slice of models into DTOs.
func NewTripResponseSlice(trips []models.Trip) []TripResponse {
	out := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		out = append(out, NewTripResponse(trip))
	}
	return out
}

// TripListResponse wraps a page of trips.
type TripListResponse struct {
	Items      []TripResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta describes the page window of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ParticipantResponse is the serialized representation of a join request.
type ParticipantResponse struct {
	ID        uint                     `json:"id"`
	TripID    uint                     `json:"trip_id"`
	UserID    uint                     `json:"user_id"`
	Status    models.ParticipantStatus `json:"status"`
	User      *UserResponse            `json:"user,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewParticipantResponse converts a model into a DTO.
func NewParticipantResponse(record models.TripParticipant) ParticipantResponse {
	return ParticipantResponse{
		ID:        record.ID,
		TripID:    record.TripID,
		UserID:    record.UserID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// ParticipantStatusRequest sets the admission decision for a join request.
type ParticipantStatusRequest struct {
	Status models.ParticipantStatus `json:"status" validate:"required,oneof=approved rejected"`
}
