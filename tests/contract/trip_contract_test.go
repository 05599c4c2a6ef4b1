package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/handler"
	"github.com/wanderly/wanderly-api/internal/models"
)

type stubTripService struct {
	trip dto.TripResponse
}

func (s stubTripService) Create(context.Context, uint, dto.TripCreateRequest) (dto.TripResponse, error) {
	return s.trip, nil
}

func (s stubTripService) Get(context.Context, uint) (dto.TripResponse, error) {
	return s.trip, nil
}

func (s stubTripService) List(context.Context, dto.TripListQuery) (dto.TripListResponse, error) {
	return dto.TripListResponse{Items: []dto.TripResponse{s.trip}}, nil
}

func (s stubTripService) Update(context.Context, uint, uint, dto.TripUpdateRequest) (dto.TripResponse, error) {
	return s.trip, nil
}

func (s stubTripService) Delete(context.Context, uint, uint) error { return nil }

type stubParticipationService struct{}

func (stubParticipationService) RequestJoin(context.Context, uint, uint) (dto.ParticipantResponse, error) {
	return dto.ParticipantResponse{}, nil
}

func (stubParticipationService) SetStatus(context.Context, uint, uint, uint, models.ParticipantStatus) (dto.ParticipantResponse, error) {
	return dto.ParticipantResponse{}, nil
}

func (stubParticipationService) Remove(context.Context, uint, uint, uint) error { return nil }

func (stubParticipationService) ListParticipants(context.Context, uint, uint) ([]dto.ParticipantResponse, error) {
	return nil, nil
}

func TestTripResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "trip.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	trip := dto.TripResponse{
		ID:          12,
		CreatorID:   4,
		Title:       "Sahara crossing",
		Destination: "Merzouga",
		Description: "Ten days of dunes.",
		StartsAt:    time.Now().Add(72 * time.Hour).UTC(),
		EndsAt:      time.Now().Add(312 * time.Hour).UTC(),
		Spots:       6,
		SpotsFilled: 2,
		Status:      models.TripStatusActive,
		CreatedAt:   time.Now().UTC(),
	}

	trips := handler.NewTripHandler(stubTripService{trip: trip}, stubParticipationService{}, zerolog.Nop())

	app := fiber.New()
	trips.Register(app.Group("/api/v1/trips"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips/12", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
