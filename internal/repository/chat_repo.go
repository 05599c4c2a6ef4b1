package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/models"
)

// ChatRepository persists discussion channels and their messages.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.TripChat) error
	GetChat(ctx context.Context, id string) (models.TripChat, error)
	ListChatsByTrip(ctx context.Context, tripID uint) ([]models.TripChat, error)
	DeleteChat(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, message *models.TripMessage) error
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.TripMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *models.TripChat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) GetChat(ctx context.Context, id string) (models.TripChat, error) {
	var chat models.TripChat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		return models.TripChat{}, err
	}
	return chat, nil
}

// ListChatsByTrip returns all channel rows for a trip ordered oldest first,
// with id as tie-break so reconciliation picks a stable survivor.
func (r *chatRepository) ListChatsByTrip(ctx context.Context, tripID uint) ([]models.TripChat, error) {
	var chats []models.TripChat
	err := r.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at ASC, id ASC").Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) DeleteChat(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TripChat{}).Error
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *models.TripMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListMessages returns messages in presentation order: created_at ascending,
// id as tie-break. A positive limit selects the newest messages; limit <= 0
// loads the full channel, which is what views need to seed their dedup state.
func (r *chatRepository) ListMessages(ctx context.Context, chatID string, limit int) ([]models.TripMessage, error) {
	scope := r.db.WithContext(ctx).Where("chat_id = ?", chatID)

	var messages []models.TripMessage
	if limit <= 0 {
		if err := scope.Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
			return nil, err
		}
		return messages, nil
	}

	if limit > 500 {
		limit = 500
	}

	if err := scope.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
