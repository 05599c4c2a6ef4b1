package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/service"
	"github.com/wanderly/wanderly-api/internal/utils"
)

// AuthHandler exposes registration and login endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler creates an auth handler instance.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds auth routes under the provided router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Post("/refresh", h.refresh)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Register(c.UserContext(), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("registration failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", pair)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "logged in", pair)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Refresh(c.UserContext(), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "token refreshed", pair)
}
