package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/middleware"
	"github.com/wanderly/wanderly-api/internal/service"
	"github.com/wanderly/wanderly-api/internal/utils"
)

// ChatHandler wires the discussion channel endpoints including the websocket upgrade.
type ChatHandler struct {
	rooms    service.ChatRoomService
	messages service.MessageService
	stream   service.ChatStreamService
	logger   zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(rooms service.ChatRoomService, messages service.MessageService, stream service.ChatStreamService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		rooms:    rooms,
		messages: messages,
		stream:   stream,
		logger:   logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/:chatID/messages", h.history)
}

// RegisterTripRoutes binds the channel access endpoint under the trips group.
func (h *ChatHandler) RegisterTripRoutes(router fiber.Router) {
	router.Post("/:id/chat", h.ensureAccess)
}

func (h *ChatHandler) ensureAccess(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	tripID, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trip id")
	}

	chat, err := h.rooms.EnsureAccess(c.UserContext(), tripID, userID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("trip_id", tripID).Msg("channel access denied")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "channel ready", chat)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	query := dto.ChatHistoryQuery{
		ChatID: c.Params("chatID"),
		Limit:  limit,
	}

	messages, err := h.messages.History(c.UserContext(), query, userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages", messages)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	chatID := conn.Query("chat_id")
	if chatID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "chat_id required"))
		_ = conn.Close()
		return
	}

	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		ChatID:        chatID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Uint("user_id", userID).Str("chat_id", chatID).Msg("chat websocket connected")
	h.stream.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Str("chat_id", chatID).Msg("chat websocket disconnected")
}

func websocketUserID(conn *websocket.Conn) uint {
	if v := conn.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok && id > 0 {
			return uint(id)
		}
	}
	return 0
}
