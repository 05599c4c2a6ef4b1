package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/observability"
	"github.com/wanderly/wanderly-api/internal/repository"
)

var (
	// ErrTripNotFound indicates the referenced trip does not exist.
	ErrTripNotFound = errors.New("trip not found")
	// ErrRecordNotFound indicates the referenced participation record does not exist.
	ErrRecordNotFound = errors.New("participation record not found")
	// ErrNotTripCreator indicates the caller does not own the trip.
	ErrNotTripCreator = errors.New("caller is not the trip creator")
	// ErrCreatorJoin indicates the trip creator tried to request a seat on their own trip.
	ErrCreatorJoin = errors.New("trip creator already has full access")
	// ErrAlreadyRequested indicates a participation record already exists for this user.
	ErrAlreadyRequested = errors.New("join request already exists")
	// ErrTripNotActive indicates the trip is no longer accepting participants.
	ErrTripNotActive = errors.New("trip is not active")
	// ErrCapacityExceeded indicates the trip filled up before the join request landed.
	ErrCapacityExceeded = errors.New("trip has no free spots")
	// ErrTripFull indicates an approval failed the fresh capacity re-check.
	ErrTripFull = errors.New("trip is already full")
	// ErrInvalidTransition indicates the requested admission state change is not allowed.
	ErrInvalidTransition = errors.New("invalid participation transition")
)

// admissionTransitions is the closed transition table for participation
// records. Same-state transitions are handled as idempotent no-ops before the
// table is consulted. Only pending records can be decided: revoking an
// approval goes through Remove, and a rejected user re-enters via a new join
// request that reinstates the record to pending.
var admissionTransitions = map[models.ParticipantStatus][]models.ParticipantStatus{
	models.ParticipantStatusPending: {models.ParticipantStatusApproved, models.ParticipantStatusRejected},
}

func transitionAllowed(from, to models.ParticipantStatus) bool {
	for _, next := range admissionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChannelAccess is the slice of the chat room lifecycle the participation
// state machine needs: guaranteeing channel access after an approval.
type ChannelAccess interface {
	EnsureAccess(ctx context.Context, tripID, userID uint) (dto.ChatResponse, error)
}

// ParticipationService owns the lifecycle of (trip, user) membership records.
type ParticipationService interface {
	RequestJoin(ctx context.Context, tripID, userID uint) (dto.ParticipantResponse, error)
	SetStatus(ctx context.Context, recordID, tripID, callerID uint, status models.ParticipantStatus) (dto.ParticipantResponse, error)
	Remove(ctx context.Context, recordID, tripID, callerID uint) error
	ListParticipants(ctx context.Context, tripID, callerID uint) ([]dto.ParticipantResponse, error)
}

type participationService struct {
	trips         repository.TripRepository
	participants  repository.ParticipantRepository
	users         repository.UserRepository
	ledger        *CapacityLedger
	chats         ChannelAccess
	notifications NotificationService
	logger        zerolog.Logger
}

// NewParticipationService constructs the participation state machine.
func NewParticipationService(
	trips repository.TripRepository,
	participants repository.ParticipantRepository,
	users repository.UserRepository,
	ledger *CapacityLedger,
	chats ChannelAccess,
	notifications NotificationService,
	logger zerolog.Logger,
) ParticipationService {
	return &participationService{
		trips:         trips,
		participants:  participants,
		users:         users,
		ledger:        ledger,
		chats:         chats,
		notifications: notifications,
		logger:        logger.With().Str("component", "participation_service").Logger(),
	}
}

// RequestJoin inserts a pending participation record for the user. The
// capacity check here is optimistic: it reads the cached count immediately
// before the insert but is not atomic with it, so a trip can still
// oversubscribe its pending queue under concurrency. Pending records do not
// consume a seat; the authoritative check happens again at approval time.
func (s *participationService) RequestJoin(ctx context.Context, tripID, userID uint) (dto.ParticipantResponse, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ParticipantResponse{}, ErrTripNotFound
		}
		return dto.ParticipantResponse{}, fmt.Errorf("load trip: %w", err)
	}

	if trip.CreatorID == userID {
		return dto.ParticipantResponse{}, ErrCreatorJoin
	}
	if trip.Status != models.TripStatusActive {
		return dto.ParticipantResponse{}, ErrTripNotActive
	}

	existing, err := s.participants.GetByTripAndUser(ctx, tripID, userID)
	switch {
	case err == nil:
		// A rejected participant may ask again; the old record is reinstated
		// as pending rather than inserting a second row.
		if existing.Status != models.ParticipantStatusRejected {
			return dto.ParticipantResponse{}, ErrAlreadyRequested
		}
		if !s.ledger.HasFreeSpot(trip) {
			observability.CapacityConflicts().WithLabelValues("request_join").Inc()
			return dto.ParticipantResponse{}, ErrCapacityExceeded
		}
		existing.Status = models.ParticipantStatusPending
		if err := s.participants.Update(ctx, &existing); err != nil {
			return dto.ParticipantResponse{}, fmt.Errorf("reinstate join request: %w", err)
		}
		s.notifyJoinRequested(ctx, trip)
		observability.AdmissionTransitions().WithLabelValues("re_requested").Inc()
		return dto.NewParticipantResponse(existing), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.ParticipantResponse{}, fmt.Errorf("load participation record: %w", err)
	}

	if !s.ledger.HasFreeSpot(trip) {
		observability.CapacityConflicts().WithLabelValues("request_join").Inc()
		return dto.ParticipantResponse{}, ErrCapacityExceeded
	}

	record := models.TripParticipant{
		TripID: tripID,
		UserID: userID,
		Status: models.ParticipantStatusPending,
	}
	if err := s.participants.Create(ctx, &record); err != nil {
		return dto.ParticipantResponse{}, fmt.Errorf("create join request: %w", err)
	}

	s.notifyJoinRequested(ctx, trip)
	observability.AdmissionTransitions().WithLabelValues("requested").Inc()
	s.logger.Info().Uint("trip_id", tripID).Uint("user_id", userID).Msg("join requested")

	return dto.NewParticipantResponse(record), nil
}

// SetStatus applies an admission decision. Approvals re-check capacity
// against a fresh trip read and fail with ErrTripFull when the trip filled up
// in the meantime. After every state change the filled-seat cache is rebuilt
// by full recount, and an approval guarantees the user's chat access.
func (s *participationService) SetStatus(ctx context.Context, recordID, tripID, callerID uint, status models.ParticipantStatus) (dto.ParticipantResponse, error) {
	if status != models.ParticipantStatusApproved && status != models.ParticipantStatusRejected {
		return dto.ParticipantResponse{}, ErrInvalidTransition
	}

	record, trip, err := s.loadRecordForCreator(ctx, recordID, tripID, callerID)
	if err != nil {
		return dto.ParticipantResponse{}, err
	}

	if record.Status == status {
		return dto.NewParticipantResponse(record), nil
	}

	if !transitionAllowed(record.Status, status) {
		return dto.ParticipantResponse{}, ErrInvalidTransition
	}

	if status == models.ParticipantStatusApproved {
		fresh, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return dto.ParticipantResponse{}, fmt.Errorf("re-read trip: %w", err)
		}
		if !s.ledger.HasFreeSpot(fresh) {
			observability.CapacityConflicts().WithLabelValues("approve").Inc()
			return dto.ParticipantResponse{}, ErrTripFull
		}
	}

	previous := record.Status
	record.Status = status
	if err := s.participants.Update(ctx, &record); err != nil {
		return dto.ParticipantResponse{}, fmt.Errorf("update participation record: %w", err)
	}

	if _, err := s.ledger.Recount(ctx, tripID); err != nil {
		return dto.ParticipantResponse{}, fmt.Errorf("recount trip capacity: %w", err)
	}

	if status == models.ParticipantStatusApproved {
		// Channel access is guaranteed lazily; a failure here is advisory
		// because EnsureAccess self-heals on the participant's next visit.
		if _, err := s.chats.EnsureAccess(ctx, tripID, record.UserID); err != nil {
			s.logger.Warn().Err(err).Uint("trip_id", tripID).Uint("user_id", record.UserID).
				Msg("failed to guarantee chat access after approval")
		}
	}

	s.notifyDecision(ctx, trip, record.UserID, status)
	observability.AdmissionTransitions().WithLabelValues(string(status)).Inc()
	s.logger.Info().Uint("trip_id", tripID).Uint("record_id", recordID).
		Str("from", string(previous)).Str("to", string(status)).Msg("admission state changed")

	return dto.NewParticipantResponse(record), nil
}

// Remove deletes a participation record and rebuilds the filled-seat cache.
func (s *participationService) Remove(ctx context.Context, recordID, tripID, callerID uint) error {
	record, trip, err := s.loadRecordForCreator(ctx, recordID, tripID, callerID)
	if err != nil {
		return err
	}

	if err := s.participants.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("delete participation record: %w", err)
	}

	if _, err := s.ledger.Recount(ctx, tripID); err != nil {
		return fmt.Errorf("recount trip capacity: %w", err)
	}

	s.notifyDecision(ctx, trip, record.UserID, "removed")
	observability.AdmissionTransitions().WithLabelValues("removed").Inc()
	s.logger.Info().Uint("trip_id", tripID).Uint("record_id", recordID).Msg("participant removed")

	return nil
}

// ListParticipants returns the trip's participation records with resolved
// user display fields. The creator sees every record; everyone else sees only
// the approved roster.
func (s *participationService) ListParticipants(ctx context.Context, tripID, callerID uint) ([]dto.ParticipantResponse, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("load trip: %w", err)
	}

	var records []models.TripParticipant
	if trip.CreatorID == callerID {
		records, err = s.participants.ListByTrip(ctx, tripID)
	} else {
		records, err = s.participants.ListByTripAndStatus(ctx, tripID, models.ParticipantStatusApproved)
	}
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	userIDs := make([]uint, 0, len(records))
	for _, record := range records {
		userIDs = append(userIDs, record.UserID)
	}
	users, err := s.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve participants: %w", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	out := make([]dto.ParticipantResponse, 0, len(records))
	for _, record := range records {
		response := dto.NewParticipantResponse(record)
		if user, ok := byID[record.UserID]; ok {
			profile := dto.NewUserResponse(user, false)
			response.User = &profile
		}
		out = append(out, response)
	}
	return out, nil
}

func (s *participationService) loadRecordForCreator(ctx context.Context, recordID, tripID, callerID uint) (models.TripParticipant, models.Trip, error) {
	record, err := s.participants.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TripParticipant{}, models.Trip{}, ErrRecordNotFound
		}
		return models.TripParticipant{}, models.Trip{}, fmt.Errorf("load participation record: %w", err)
	}
	if record.TripID != tripID {
		return models.TripParticipant{}, models.Trip{}, ErrRecordNotFound
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TripParticipant{}, models.Trip{}, ErrTripNotFound
		}
		return models.TripParticipant{}, models.Trip{}, fmt.Errorf("load trip: %w", err)
	}
	if trip.CreatorID != callerID {
		return models.TripParticipant{}, models.Trip{}, ErrNotTripCreator
	}

	return record, trip, nil
}

func (s *participationService) notifyJoinRequested(ctx context.Context, trip models.Trip) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Publish(ctx, models.Notification{
		UserID:  trip.CreatorID,
		Type:    "join_requested",
		Message: fmt.Sprintf("A traveller asked to join %q", trip.Title),
		TripID:  trip.ID,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("trip_id", trip.ID).Msg("failed to notify trip creator")
	}
}

func (s *participationService) notifyDecision(ctx context.Context, trip models.Trip, userID uint, outcome models.ParticipantStatus) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Publish(ctx, models.Notification{
		UserID:  userID,
		Type:    "join_" + string(outcome),
		Message: fmt.Sprintf("Your request for %q is now %s", trip.Title, outcome),
		TripID:  trip.ID,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("trip_id", trip.ID).Uint("user_id", userID).Msg("failed to notify participant")
	}
}
