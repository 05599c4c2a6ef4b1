package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken indicates the refresh token failed verification.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AuthService handles registration, login, and token issuance.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.TokenPairResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error)
	Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error)
}

type authService struct {
	users         repository.UserRepository
	validator     *validator.Validate
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	logger        zerolog.Logger
}

// NewAuthService constructs an auth service.
func NewAuthService(users repository.UserRepository, validate *validator.Validate, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, logger zerolog.Logger) AuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &authService{
		users:         users,
		validator:     validate,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		logger:        logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.TokenPairResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TokenPairResponse{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(payload.Name),
		Handle:       strings.ToLower(strings.TrimSpace(payload.Handle)),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("account registered")

	return s.issuePair(user)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("email", maskEmailAddress(payload.Email)).Msg("login for unknown account")
			return dto.TokenPairResponse{}, ErrInvalidCredentials
		}
		return dto.TokenPairResponse{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		s.logger.Warn().Str("email", maskEmailAddress(payload.Email)).Msg("login with bad password")
		return dto.TokenPairResponse{}, ErrInvalidCredentials
	}

	return s.issuePair(user)
}

func (s *authService) Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenPairResponse{}, err
	}

	token, err := jwt.Parse(payload.RefreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.refreshSecret), nil
	})
	if err != nil || !token.Valid {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	var userID uint
	if _, err := fmt.Sscanf(subject, "%d", &userID); err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.TokenPairResponse{}, ErrInvalidRefreshToken
	}

	return s.issuePair(user)
}

func (s *authService) issuePair(user models.User) (dto.TokenPairResponse, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    fmt.Sprintf("%d", user.ID),
		"handle": user.Handle,
		"iat":    now.Unix(),
		"exp":    now.Add(s.accessTTL).Unix(),
	})
	accessToken, err := access.SignedString([]byte(s.accessSecret))
	if err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": fmt.Sprintf("%d", user.ID),
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	refreshToken, err := refresh.SignedString([]byte(s.refreshSecret))
	if err != nil {
		return dto.TokenPairResponse{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto.NewUserResponse(user, true),
	}, nil
}
