package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/models"
)

// TripFilter narrows the trip browse query.
type TripFilter struct {
	Destination string
	Status      models.TripStatus
	OnlyOpen    bool
	Page        int
	PageSize    int
}

// TripRepository persists trip listings.
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id uint) (models.Trip, error)
	List(ctx context.Context, filter TripFilter) ([]models.Trip, int64, error)
	Update(ctx context.Context, trip *models.Trip) error
	UpdateSpotsFilled(ctx context.Context, tripID uint, filled int) error
	Delete(ctx context.Context, id uint) error
}

type tripRepository struct {
	db *gorm.DB
}

// NewTripRepository constructs a trip repository backed by GORM.
func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *tripRepository) GetByID(ctx context.Context, id uint) (models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).First(&trip, id).Error; err != nil {
		return models.Trip{}, err
	}
	return trip, nil
}

func (r *tripRepository) List(ctx context.Context, filter TripFilter) ([]models.Trip, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.Trip{})
	if filter.Destination != "" {
		query = query.Where("LOWER(destination) LIKE ?", "%"+strings.ToLower(filter.Destination)+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyOpen {
		query = query.Where("spots_filled < spots")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trips []models.Trip
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&trips).Error; err != nil {
		return nil, 0, err
	}

	return trips, total, nil
}

func (r *tripRepository) Update(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Save(trip).Error
}

func (r *tripRepository) UpdateSpotsFilled(ctx context.Context, tripID uint, filled int) error {
	return r.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", tripID).Update("spots_filled", filled).Error
}

func (r *tripRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Trip{}, id).Error
}
