package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/service"
	"github.com/wanderly/wanderly-api/internal/utils"
)

// UserHandler exposes profile endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler creates a user handler instance.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds user routes under the provided router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Put("/me", h.update)
	router.Get("/:id", h.get)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Get(c.UserContext(), userID, true)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "profile", profile)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.service.Update(c.UserContext(), userID, payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	profile, err := h.service.Get(c.UserContext(), id, false)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "profile", profile)
}
