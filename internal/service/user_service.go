package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/repository"
)

// ErrUserNotFound indicates the referenced profile does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserService serves and updates traveller profiles.
type UserService interface {
	Get(ctx context.Context, id uint, includeEmail bool) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error)
	SetAvatar(ctx context.Context, id uint, url string) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewUserService constructs a user service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Get(ctx context.Context, id uint, includeEmail bool) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, fmt.Errorf("load user: %w", err)
	}
	return dto.NewUserResponse(user, includeEmail), nil
}

func (s *userService) Update(ctx context.Context, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, fmt.Errorf("load user: %w", err)
	}

	if payload.Name != nil {
		user.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Bio != nil {
		user.Bio = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Bio))
	}
	if payload.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*payload.AvatarURL)
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, fmt.Errorf("update user: %w", err)
	}

	return dto.NewUserResponse(user, true), nil
}

func (s *userService) SetAvatar(ctx context.Context, id uint, url string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, fmt.Errorf("load user: %w", err)
	}

	user.AvatarURL = url
	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, fmt.Errorf("update avatar: %w", err)
	}

	return dto.NewUserResponse(user, true), nil
}
