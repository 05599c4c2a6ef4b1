package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/service"
	"github.com/wanderly/wanderly-api/internal/utils"
)

// TripHandler exposes trip CRUD, browsing, and the admission endpoints.
type TripHandler struct {
	trips         service.TripService
	participation service.ParticipationService
	logger        zerolog.Logger
}

// NewTripHandler creates a trip handler instance.
func NewTripHandler(trips service.TripService, participation service.ParticipationService, logger zerolog.Logger) *TripHandler {
	return &TripHandler{
		trips:         trips,
		participation: participation,
		logger:        logger.With().Str("component", "trip_handler").Logger(),
	}
}

// Register binds trip routes under the provided router group.
func (h *TripHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)

	router.Post("/:id/join", h.requestJoin)
	router.Get("/:id/participants", h.listParticipants)
	router.Put("/:id/participants/:recordID", h.setStatus)
	router.Delete("/:id/participants/:recordID", h.removeParticipant)
}

func (h *TripHandler) list(c *fiber.Ctx) error {
	var query dto.TripListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.trips.List(c.UserContext(), query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "trips", response)
}

func (h *TripHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.TripCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	trip, err := h.trips.Create(c.UserContext(), userID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("trip creation failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "trip created", trip)
}

func (h *TripHandler) get(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	trip, err := h.trips.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "trip", trip)
}

func (h *TripHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	var payload dto.TripUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	trip, err := h.trips.Update(c.UserContext(), id, userID, payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "trip updated", trip)
}

func (h *TripHandler) remove(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	if err := h.trips.Delete(c.UserContext(), id, userID); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "trip deleted", nil)
}

func (h *TripHandler) requestJoin(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	tripID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	record, err := h.participation.RequestJoin(c.UserContext(), tripID, userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "join requested", record)
}

func (h *TripHandler) listParticipants(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	tripID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	participants, err := h.participation.ListParticipants(c.UserContext(), tripID, userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "participants", participants)
}

func (h *TripHandler) setStatus(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	tripID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}
	recordID, err := parseParamUint(c, "recordID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid record id")
	}

	var payload dto.ParticipantStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.participation.SetStatus(c.UserContext(), recordID, tripID, userID, payload.Status)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("trip_id", tripID).Msg("admission decision failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "participant updated", record)
}

func (h *TripHandler) removeParticipant(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	tripID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}
	recordID, err := parseParamUint(c, "recordID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid record id")
	}

	if err := h.participation.Remove(c.UserContext(), recordID, tripID, userID); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "participant removed", nil)
}
