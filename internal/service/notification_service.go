package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
)

// NotificationService records and serves admission-related notices.
type NotificationService interface {
	Publish(ctx context.Context, notification models.Notification) error
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger

	mu          sync.Mutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
	}
}

func (s *notificationService) Publish(ctx context.Context, notification models.Notification) error {
	if err := s.repo.Create(ctx, &notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	s.broadcast(notification.UserID, dto.NewNotificationResponse(notification))
	return nil
}

// Subscribe registers a live stream for the user. The returned cleanup must be
// called when the consumer disconnects.
func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse, 8)

	s.mu.Lock()
	set, ok := s.subscribers[userID]
	if !ok {
		set = make(map[chan dto.NotificationResponse]struct{})
		s.subscribers[userID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	cleanup := func() {
		s.mu.Lock()
		if set, ok := s.subscribers[userID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.subscribers, userID)
			}
		}
		s.mu.Unlock()
	}

	return ch, cleanup
}

func (s *notificationService) broadcast(userID uint, payload dto.NotificationResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers[userID] {
		select {
		case ch <- payload:
		default:
			s.logger.Debug().Uint("user_id", userID).Msg("notification subscriber buffer full, dropping event")
		}
	}
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	items, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(items), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	item, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(item), nil
}
