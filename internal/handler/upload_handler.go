package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/service"
	"github.com/wanderly/wanderly-api/internal/utils"
)

// UploadHandler handles avatar and trip cover image uploads.
type UploadHandler struct {
	uploads service.UploadService
	users   service.UserService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(uploads service.UploadService, users service.UserService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		users:   users,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("/image", h.uploadImage)
	router.Post("/avatar", h.uploadAvatar)
}

func (h *UploadHandler) uploadImage(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.uploads.UploadImage(c.UserContext(), file)
	if err != nil {
		return h.sendUploadError(c, err)
	}

	return utils.SendSuccess(c, "upload successful", result)
}

func (h *UploadHandler) uploadAvatar(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.uploads.UploadImage(c.UserContext(), file)
	if err != nil {
		return h.sendUploadError(c, err)
	}

	profile, err := h.users.SetAvatar(c.UserContext(), userID, result.URL)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "avatar updated", profile)
}

func (h *UploadHandler) sendUploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("upload failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
	}
}
