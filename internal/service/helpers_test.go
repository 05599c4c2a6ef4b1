package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type tripRepoStub struct {
	mu     sync.Mutex
	nextID uint
	trips  map[uint]models.Trip
}

func newTripRepoStub(trips ...models.Trip) *tripRepoStub {
	stub := &tripRepoStub{trips: make(map[uint]models.Trip)}
	for _, trip := range trips {
		if trip.ID > stub.nextID {
			stub.nextID = trip.ID
		}
		stub.trips[trip.ID] = trip
	}
	return stub
}

func (s *tripRepoStub) Create(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	trip.ID = s.nextID
	trip.CreatedAt = time.Now().UTC()
	s.trips[trip.ID] = *trip
	return nil
}

func (s *tripRepoStub) GetByID(ctx context.Context, id uint) (models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[id]
	if !ok {
		return models.Trip{}, gorm.ErrRecordNotFound
	}
	return trip, nil
}

func (s *tripRepoStub) List(ctx context.Context, filter repository.TripFilter) ([]models.Trip, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trip, 0, len(s.trips))
	for _, trip := range s.trips {
		out = append(out, trip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *tripRepoStub) Update(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[trip.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.trips[trip.ID] = *trip
	return nil
}

func (s *tripRepoStub) UpdateSpotsFilled(ctx context.Context, tripID uint, filled int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[tripID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	trip.SpotsFilled = filled
	s.trips[tripID] = trip
	return nil
}

func (s *tripRepoStub) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trips, id)
	return nil
}

type participantRepoStub struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]models.TripParticipant
}

func newParticipantRepoStub(records ...models.TripParticipant) *participantRepoStub {
	stub := &participantRepoStub{records: make(map[uint]models.TripParticipant)}
	for _, record := range records {
		if record.ID > stub.nextID {
			stub.nextID = record.ID
		}
		stub.records[record.ID] = record
	}
	return stub
}

func (s *participantRepoStub) Create(ctx context.Context, record *models.TripParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	record.CreatedAt = time.Now().UTC()
	s.records[record.ID] = *record
	return nil
}

func (s *participantRepoStub) GetByID(ctx context.Context, id uint) (models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return models.TripParticipant{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *participantRepoStub) GetByTripAndUser(ctx context.Context, tripID, userID uint) (models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.TripID == tripID && record.UserID == userID {
			return record, nil
		}
	}
	return models.TripParticipant{}, gorm.ErrRecordNotFound
}

func (s *participantRepoStub) ListByTrip(ctx context.Context, tripID uint) ([]models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TripParticipant, 0)
	for _, record := range s.records {
		if record.TripID == tripID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *participantRepoStub) ListByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) ([]models.TripParticipant, error) {
	records, _ := s.ListByTrip(ctx, tripID)
	out := make([]models.TripParticipant, 0)
	for _, record := range records {
		if record.Status == status {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *participantRepoStub) CountByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) (int64, error) {
	records, _ := s.ListByTripAndStatus(ctx, tripID, status)
	return int64(len(records)), nil
}

func (s *participantRepoStub) Update(ctx context.Context, record *models.TripParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.records[record.ID] = *record
	return nil
}

func (s *participantRepoStub) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

type userRepoStub struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
}

func newUserRepoStub(users ...models.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[uint]models.User)}
	for _, user := range users {
		if user.ID > stub.nextID {
			stub.nextID = user.ID
		}
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = *user
	return nil
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (s *userRepoStub) ListByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.users[user.ID] = *user
	return nil
}

type chatRepoStub struct {
	mu       sync.Mutex
	chats    []models.TripChat
	messages []models.TripMessage
	getErr   error
}

func (s *chatRepoStub) CreateChat(ctx context.Context, chat *models.TripChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	s.chats = append(s.chats, *chat)
	return nil
}

func (s *chatRepoStub) GetChat(ctx context.Context, id string) (models.TripChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return models.TripChat{}, s.getErr
	}
	for _, chat := range s.chats {
		if chat.ID == id {
			return chat, nil
		}
	}
	return models.TripChat{}, gorm.ErrRecordNotFound
}

func (s *chatRepoStub) ListChatsByTrip(ctx context.Context, tripID uint) ([]models.TripChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TripChat, 0)
	for _, chat := range s.chats {
		if chat.TripID == tripID {
			out = append(out, chat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *chatRepoStub) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chats[:0]
	for _, chat := range s.chats {
		if chat.ID != id {
			kept = append(kept, chat)
		}
	}
	s.chats = kept
	return nil
}

func (s *chatRepoStub) CreateMessage(ctx context.Context, message *models.TripMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, *message)
	return nil
}

func (s *chatRepoStub) ListMessages(ctx context.Context, chatID string, limit int) ([]models.TripMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TripMessage, 0)
	for _, message := range s.messages {
		if message.ChatID == chatID {
			out = append(out, message)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type channelAccessStub struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (s *channelAccessStub) EnsureAccess(ctx context.Context, tripID, userID uint) (dto.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, userID)
	return dto.ChatResponse{}, s.err
}

type notificationRecorderStub struct {
	mu        sync.Mutex
	published []models.Notification
}

func (s *notificationRecorderStub) Publish(ctx context.Context, notification models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, notification)
	return nil
}

func (s *notificationRecorderStub) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse)
	return ch, func() { close(ch) }
}

func (s *notificationRecorderStub) List(ctx context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	return nil, nil
}

func (s *notificationRecorderStub) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	return dto.NotificationResponse{}, nil
}
