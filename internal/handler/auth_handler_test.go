package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/handler"
	"github.com/wanderly/wanderly-api/internal/service"
)

type mockAuthService struct {
	pair         dto.TokenPairResponse
	err          error
	lastRegister dto.RegisterRequest
	lastLogin    dto.LoginRequest
}

func (m *mockAuthService) Register(_ context.Context, payload dto.RegisterRequest) (dto.TokenPairResponse, error) {
	m.lastRegister = payload
	if m.err != nil {
		return dto.TokenPairResponse{}, m.err
	}
	return m.pair, nil
}

func (m *mockAuthService) Login(_ context.Context, payload dto.LoginRequest) (dto.TokenPairResponse, error) {
	m.lastLogin = payload
	if m.err != nil {
		return dto.TokenPairResponse{}, m.err
	}
	return m.pair, nil
}

func (m *mockAuthService) Refresh(_ context.Context, payload dto.RefreshRequest) (dto.TokenPairResponse, error) {
	if m.err != nil {
		return dto.TokenPairResponse{}, m.err
	}
	return m.pair, nil
}

func newAuthTestApp(svc service.AuthService) *fiber.App {
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))
	return app
}

func TestAuthHandlerRegisterCreatesAccount(t *testing.T) {
	svc := &mockAuthService{pair: dto.TokenPairResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         dto.UserResponse{ID: 1, Handle: "amira"},
	}}
	app := newAuthTestApp(svc)

	body, err := json.Marshal(dto.RegisterRequest{
		Email:    "amira@example.com",
		Password: "s3cretpass",
		Name:     "Amira",
		Handle:   "amira",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "amira@example.com", svc.lastRegister.Email)

	var response struct {
		Success bool                  `json:"success"`
		Data    dto.TokenPairResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "access", response.Data.AccessToken)
	require.Equal(t, "amira", response.Data.User.Handle)
}

func TestAuthHandlerRegisterRejectsMalformedBody(t *testing.T) {
	app := newAuthTestApp(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandlerRegisterConflictsOnTakenEmail(t *testing.T) {
	app := newAuthTestApp(&mockAuthService{err: service.ErrEmailTaken})

	body, err := json.Marshal(dto.RegisterRequest{
		Email:    "amira@example.com",
		Password: "s3cretpass",
		Name:     "Amira",
		Handle:   "amira",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthHandlerLoginMapsInvalidCredentials(t *testing.T) {
	app := newAuthTestApp(&mockAuthService{err: service.ErrInvalidCredentials})

	body, err := json.Marshal(dto.LoginRequest{Email: "amira@example.com", Password: "wrong"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandlerRefreshRejectsBadToken(t *testing.T) {
	app := newAuthTestApp(&mockAuthService{err: service.ErrInvalidRefreshToken})

	body, err := json.Marshal(dto.RefreshRequest{RefreshToken: "stale"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
