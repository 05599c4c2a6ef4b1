package service

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/observability"
)

const (
	streamKeepaliveInterval = 30 * time.Second
	streamSendBufferSize    = 32
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        uint
	ChatID        string
	CorrelationID string
	Context       context.Context
}

// ChatFrame is the envelope written to websocket clients.
type ChatFrame struct {
	Type     string                `json:"type"`
	Messages []dto.ChatMessageView `json:"messages,omitempty"`
	Message  *dto.ChatMessageView  `json:"message,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ChatStreamService serves channel views over websocket connections.
type ChatStreamService interface {
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
}

type chatStreamService struct {
	messages MessageService
	logger   zerolog.Logger
}

// NewChatStreamService constructs the websocket streaming service.
func NewChatStreamService(messages MessageService, logger zerolog.Logger) ChatStreamService {
	return &chatStreamService{
		messages: messages,
		logger:   logger.With().Str("component", "chat_stream_service").Logger(),
	}
}

// ServeConnection opens a channel view for the connection, writes the history
// snapshot, then pumps live messages until either side closes. The view and
// its dedup state are discarded when the connection ends.
//
// All frames go out through a single writer goroutine; the reader routes send
// acks and errors into the same outbound queue.
func (s *chatStreamService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	view, err := s.messages.OpenView(baseCtx, opts.ChatID, opts.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("chat_id", opts.ChatID).Uint("user_id", opts.UserID).
			Msg("rejecting chat connection")
		_ = conn.WriteJSON(ChatFrame{Type: "error", Error: err.Error()})
		_ = conn.Close()
		return
	}
	defer view.Close()

	observability.ChatConnections().Inc()
	defer observability.ChatConnections().Dec()

	outbound := make(chan ChatFrame, streamSendBufferSize)
	outbound <- ChatFrame{Type: "history", Messages: view.Messages()}

	done := make(chan struct{})
	go s.writer(conn, view, outbound, done)
	s.reader(baseCtx, conn, view, outbound)
	close(done)
}

func (s *chatStreamService) reader(ctx context.Context, conn *websocket.Conn, view *ChannelView, outbound chan<- ChatFrame) {
	for {
		var payload dto.ChatSendRequest
		if err := conn.ReadJSON(&payload); err != nil {
			s.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		sent, err := view.Send(ctx, payload.Content)
		frame := ChatFrame{Type: "message", Message: &sent}
		if err != nil {
			s.logger.Warn().Err(err).Str("chat_id", view.chat.ID).Msg("failed to send chat message")
			frame = ChatFrame{Type: "error", Error: err.Error()}
		}

		select {
		case outbound <- frame:
		default:
			s.logger.Warn().Msg("sender queue full, dropping ack frame")
		}
	}
}

func (s *chatStreamService) writer(conn *websocket.Conn, view *ChannelView, outbound <-chan ChatFrame, done <-chan struct{}) {
	ticker := time.NewTicker(streamKeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-outbound:
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case message, ok := <-view.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(ChatFrame{Type: "message", Message: &message}); err != nil {
				s.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-done:
			return
		}
	}
}
