package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
)

// ErrSpotsBelowFilled indicates an update tried to shrink capacity below the
// number of already approved participants.
var ErrSpotsBelowFilled = errors.New("spots cannot be lower than approved participants")

// TripService handles trip CRUD and browsing.
type TripService interface {
	Create(ctx context.Context, creatorID uint, payload dto.TripCreateRequest) (dto.TripResponse, error)
	Get(ctx context.Context, id uint) (dto.TripResponse, error)
	List(ctx context.Context, query dto.TripListQuery) (dto.TripListResponse, error)
	Update(ctx context.Context, id, callerID uint, payload dto.TripUpdateRequest) (dto.TripResponse, error)
	Delete(ctx context.Context, id, callerID uint) error
}

type tripService struct {
	trips     repository.TripRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewTripService constructs a trip service.
func NewTripService(trips repository.TripRepository, validate *validator.Validate, logger zerolog.Logger) TripService {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")

	return &tripService{
		trips:     trips,
		validator: validate,
		sanitizer: policy,
		logger:    logger.With().Str("component", "trip_service").Logger(),
	}
}

func (s *tripService) Create(ctx context.Context, creatorID uint, payload dto.TripCreateRequest) (dto.TripResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TripResponse{}, err
	}

	metadata := datatypes.JSONMap{}
	for key, value := range payload.Metadata {
		metadata[key] = value
	}

	trip := models.Trip{
		CreatorID:   creatorID,
		Title:       strings.TrimSpace(payload.Title),
		Destination: strings.TrimSpace(payload.Destination),
		Description: s.sanitizer.Sanitize(payload.Description),
		StartsAt:    payload.StartsAt,
		EndsAt:      payload.EndsAt,
		Spots:       payload.Spots,
		Status:      models.TripStatusActive,
		Metadata:    metadata,
	}
	if err := s.trips.Create(ctx, &trip); err != nil {
		return dto.TripResponse{}, fmt.Errorf("create trip: %w", err)
	}

	s.logger.Info().Uint("trip_id", trip.ID).Uint("creator_id", creatorID).Msg("trip published")

	return dto.NewTripResponse(trip), nil
}

func (s *tripService) Get(ctx context.Context, id uint) (dto.TripResponse, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TripResponse{}, ErrTripNotFound
		}
		return dto.TripResponse{}, fmt.Errorf("load trip: %w", err)
	}
	return dto.NewTripResponse(trip), nil
}

func (s *tripService) List(ctx context.Context, query dto.TripListQuery) (dto.TripListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.TripListResponse{}, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	trips, total, err := s.trips.List(ctx, repository.TripFilter{
		Destination: strings.TrimSpace(query.Destination),
		Status:      models.TripStatus(query.Status),
		OnlyOpen:    query.OnlyOpen,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return dto.TripListResponse{}, fmt.Errorf("list trips: %w", err)
	}

	pagination := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}

	return dto.TripListResponse{Items: dto.NewTripResponseSlice(trips), Pagination: pagination}, nil
}

func (s *tripService) Update(ctx context.Context, id, callerID uint, payload dto.TripUpdateRequest) (dto.TripResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TripResponse{}, err
	}

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TripResponse{}, ErrTripNotFound
		}
		return dto.TripResponse{}, fmt.Errorf("load trip: %w", err)
	}
	if trip.CreatorID != callerID {
		return dto.TripResponse{}, ErrNotTripCreator
	}

	if payload.Title != nil {
		trip.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Destination != nil {
		trip.Destination = strings.TrimSpace(*payload.Destination)
	}
	if payload.Description != nil {
		trip.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.StartsAt != nil {
		trip.StartsAt = *payload.StartsAt
	}
	if payload.EndsAt != nil {
		trip.EndsAt = *payload.EndsAt
	}
	if payload.Spots != nil {
		if *payload.Spots < trip.SpotsFilled {
			return dto.TripResponse{}, ErrSpotsBelowFilled
		}
		trip.Spots = *payload.Spots
	}
	if payload.Status != nil {
		trip.Status = *payload.Status
	}

	if err := s.trips.Update(ctx, &trip); err != nil {
		return dto.TripResponse{}, fmt.Errorf("update trip: %w", err)
	}

	return dto.NewTripResponse(trip), nil
}

func (s *tripService) Delete(ctx context.Context, id, callerID uint) error {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTripNotFound
		}
		return fmt.Errorf("load trip: %w", err)
	}
	if trip.CreatorID != callerID {
		return ErrNotTripCreator
	}

	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}

	s.logger.Info().Uint("trip_id", id).Msg("trip deleted")

	return nil
}
