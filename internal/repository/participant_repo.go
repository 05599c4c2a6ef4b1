package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/models"
)

// ParticipantRepository persists trip join requests.
type ParticipantRepository interface {
	Create(ctx context.Context, record *models.TripParticipant) error
	GetByID(ctx context.Context, id uint) (models.TripParticipant, error)
	GetByTripAndUser(ctx context.Context, tripID, userID uint) (models.TripParticipant, error)
	ListByTrip(ctx context.Context, tripID uint) ([]models.TripParticipant, error)
	ListByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) ([]models.TripParticipant, error)
	CountByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) (int64, error)
	Update(ctx context.Context, record *models.TripParticipant) error
	Delete(ctx context.Context, id uint) error
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository constructs a participant repository backed by GORM.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(ctx context.Context, record *models.TripParticipant) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *participantRepository) GetByID(ctx context.Context, id uint) (models.TripParticipant, error) {
	var record models.TripParticipant
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.TripParticipant{}, err
	}
	return record, nil
}

func (r *participantRepository) GetByTripAndUser(ctx context.Context, tripID, userID uint) (models.TripParticipant, error) {
	var record models.TripParticipant
	err := r.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).First(&record).Error
	if err != nil {
		return models.TripParticipant{}, err
	}
	return record, nil
}

func (r *participantRepository) ListByTrip(ctx context.Context, tripID uint) ([]models.TripParticipant, error) {
	var records []models.TripParticipant
	if err := r.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *participantRepository) ListByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) ([]models.TripParticipant, error) {
	var records []models.TripParticipant
	err := r.db.WithContext(ctx).Where("trip_id = ? AND status = ?", tripID, status).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *participantRepository) CountByTripAndStatus(ctx context.Context, tripID uint, status models.ParticipantStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TripParticipant{}).
		Where("trip_id = ? AND status = ?", tripID, status).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *participantRepository) Update(ctx context.Context, record *models.TripParticipant) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *participantRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.TripParticipant{}, id).Error
}
