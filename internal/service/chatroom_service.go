package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/observability"
	"github.com/wanderly/wanderly-api/internal/repository"
)

var (
	// ErrChatAccessDenied indicates the user is neither the trip creator nor an approved participant.
	ErrChatAccessDenied = errors.New("user is not authorised for this trip's chat")
	// ErrChatNotSettled indicates the chosen channel did not resolve on re-read;
	// the caller may retry the whole EnsureAccess call.
	ErrChatNotSettled = errors.New("discussion channel not yet visible, retry")
)

// ChatRoomService guarantees a 1:1 mapping between a trip and its discussion
// channel. Channel creation has no atomic create-if-absent primitive, so
// duplicates are expected under concurrency and collapsed by reconciliation
// instead of prevented by locking.
type ChatRoomService interface {
	ChannelAccess
	Authorize(ctx context.Context, chatID string, userID uint) (models.TripChat, error)
}

type chatRoomService struct {
	chats        repository.ChatRepository
	trips        repository.TripRepository
	participants repository.ParticipantRepository
	logger       zerolog.Logger
}

// NewChatRoomService constructs the chat room lifecycle manager.
func NewChatRoomService(chats repository.ChatRepository, trips repository.TripRepository, participants repository.ParticipantRepository, logger zerolog.Logger) ChatRoomService {
	return &chatRoomService{
		chats:        chats,
		trips:        trips,
		participants: participants,
		logger:       logger.With().Str("component", "chat_room_service").Logger(),
	}
}

// EnsureAccess returns the trip's single discussion channel, creating it on
// first authorized access. Reconciliation runs unconditionally first so every
// call self-heals duplicates left behind by earlier races.
func (s *chatRoomService) EnsureAccess(ctx context.Context, tripID, userID uint) (dto.ChatResponse, error) {
	survivor, err := s.reconcile(ctx, tripID)
	if err != nil {
		return dto.ChatResponse{}, fmt.Errorf("reconcile channels: %w", err)
	}

	if survivor == nil {
		trip, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ChatResponse{}, ErrTripNotFound
			}
			return dto.ChatResponse{}, fmt.Errorf("load trip: %w", err)
		}

		if err := s.authorizeTrip(ctx, trip, userID); err != nil {
			return dto.ChatResponse{}, err
		}

		created := models.TripChat{
			ID:     uuid.NewString(),
			TripID: tripID,
		}
		if err := s.chats.CreateChat(ctx, &created); err != nil {
			return dto.ChatResponse{}, fmt.Errorf("create channel: %w", err)
		}
		survivor = &created
		s.logger.Info().Uint("trip_id", tripID).Str("chat_id", created.ID).Msg("discussion channel created")
	}

	// Defensive re-read: a freshly created channel may lag behind on a
	// read-after-write replica. Surface that as a retryable condition rather
	// than handing out an id that does not resolve.
	settled, err := s.chats.GetChat(ctx, survivor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatResponse{}, ErrChatNotSettled
		}
		return dto.ChatResponse{}, fmt.Errorf("verify channel: %w", err)
	}

	return dto.NewChatResponse(settled), nil
}

// Authorize resolves a channel id and verifies the user may read and write
// it. Used by the message engine before opening a view or accepting a send.
func (s *chatRoomService) Authorize(ctx context.Context, chatID string, userID uint) (models.TripChat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TripChat{}, ErrChatAccessDenied
		}
		return models.TripChat{}, fmt.Errorf("load channel: %w", err)
	}

	trip, err := s.trips.GetByID(ctx, chat.TripID)
	if err != nil {
		return models.TripChat{}, fmt.Errorf("load trip: %w", err)
	}

	if err := s.authorizeTrip(ctx, trip, userID); err != nil {
		return models.TripChat{}, err
	}

	return chat, nil
}

// reconcile collapses duplicate channel rows down to the earliest-created
// one. Deletion failures are advisory: the survivor is still usable and a
// later call retries the cleanup.
func (s *chatRoomService) reconcile(ctx context.Context, tripID uint) (*models.TripChat, error) {
	chats, err := s.chats.ListChatsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, nil
	}

	survivor := chats[0]
	for _, duplicate := range chats[1:] {
		if err := s.chats.DeleteChat(ctx, duplicate.ID); err != nil {
			s.logger.Warn().Err(err).Uint("trip_id", tripID).Str("chat_id", duplicate.ID).
				Msg("failed to delete duplicate channel, will retry on next access")
			continue
		}
		observability.ChatsReconciled().Inc()
		s.logger.Info().Uint("trip_id", tripID).Str("chat_id", duplicate.ID).Msg("duplicate channel removed")
	}

	return &survivor, nil
}

func (s *chatRoomService) authorizeTrip(ctx context.Context, trip models.Trip, userID uint) error {
	if trip.CreatorID == userID {
		return nil
	}

	record, err := s.participants.GetByTripAndUser(ctx, trip.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatAccessDenied
		}
		return fmt.Errorf("load participation record: %w", err)
	}
	if record.Status != models.ParticipantStatusApproved {
		return ErrChatAccessDenied
	}
	return nil
}
