package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
)

// CapacityLedger maintains the derived filled-seat count for a trip.
//
// SpotsFilled on the trip row is a cache. The ledger never increments or
// decrements it; every mutating admission transition triggers a full recount
// of approved participation records, which self-heals any drift left behind
// by partial failures or concurrent writers.
type CapacityLedger struct {
	trips        repository.TripRepository
	participants repository.ParticipantRepository
	logger       zerolog.Logger
}

// NewCapacityLedger constructs a capacity ledger.
func NewCapacityLedger(trips repository.TripRepository, participants repository.ParticipantRepository, logger zerolog.Logger) *CapacityLedger {
	return &CapacityLedger{
		trips:        trips,
		participants: participants,
		logger:       logger.With().Str("component", "capacity_ledger").Logger(),
	}
}

// HasFreeSpot reports whether the trip can admit another participant based on
// the cached count. Callers making an admission decision must re-read the trip
// immediately before calling this; the check is still best effort.
func (l *CapacityLedger) HasFreeSpot(trip models.Trip) bool {
	return trip.SpotsFilled < trip.Spots
}

// Recount recomputes spots_filled from the authoritative set of approved
// participation records and persists it on the trip. It is safe to call at
// any time and is the designated repair operation for counter drift.
func (l *CapacityLedger) Recount(ctx context.Context, tripID uint) (int, error) {
	count, err := l.participants.CountByTripAndStatus(ctx, tripID, models.ParticipantStatusApproved)
	if err != nil {
		return 0, err
	}

	filled := int(count)
	if err := l.trips.UpdateSpotsFilled(ctx, tripID, filled); err != nil {
		return 0, err
	}

	l.logger.Debug().Uint("trip_id", tripID).Int("spots_filled", filled).Msg("recounted trip capacity")

	return filled, nil
}
