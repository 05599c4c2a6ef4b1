package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/observability"
	"github.com/wanderly/wanderly-api/internal/repository"
)

const viewEventBufferSize = 32

// ErrEmptyMessage indicates the message body was empty after sanitisation.
var ErrEmptyMessage = errors.New("message content empty after sanitisation")

// MessageService merges a channel's message history with its live feed into
// consistent per-viewer views.
type MessageService interface {
	OpenView(ctx context.Context, chatID string, userID uint) (*ChannelView, error)
	History(ctx context.Context, query dto.ChatHistoryQuery, userID uint) ([]dto.ChatMessageView, error)
}

type messageService struct {
	chats     repository.ChatRepository
	users     repository.UserRepository
	rooms     ChatRoomService
	feed      ChatFeed
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMessageService constructs the message synchronisation engine.
func NewMessageService(chats repository.ChatRepository, users repository.UserRepository, rooms ChatRoomService, feed ChatFeed, validate *validator.Validate, logger zerolog.Logger) MessageService {
	sanitizer := bluemonday.StrictPolicy()

	return &messageService{
		chats:     chats,
		users:     users,
		rooms:     rooms,
		feed:      feed,
		validator: validate,
		sanitizer: sanitizer,
		logger:    logger.With().Str("component", "message_service").Logger(),
		tracer:    otel.Tracer("github.com/wanderly/wanderly-api/internal/service/message"),
	}
}

// ChannelView is one viewer's live window onto a discussion channel. It holds
// the ordered message list and the set of already-seen message identifiers
// used to suppress duplicate feed deliveries, including the echo of the
// viewer's own sends. View state is discarded on Close, never persisted.
type ChannelView struct {
	service *messageService
	chat    models.TripChat
	userID  uint

	mu       sync.Mutex
	known    map[string]struct{}
	messages []dto.ChatMessageView

	events      chan dto.ChatMessageView
	unsubscribe func()
	closeOnce   sync.Once
	closed      chan struct{}
}

// OpenView authorizes the user for the channel, loads ordered history with
// resolved authors, seeds the dedup set, and attaches the live feed.
func (s *messageService) OpenView(ctx context.Context, chatID string, userID uint) (*ChannelView, error) {
	chat, err := s.rooms.Authorize(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, chatID, 0)
	if err != nil {
		return nil, err
	}

	view := &ChannelView{
		service:  s,
		chat:     chat,
		userID:   userID,
		known:    make(map[string]struct{}, len(history)),
		messages: history,
		events:   make(chan dto.ChatMessageView, viewEventBufferSize),
		closed:   make(chan struct{}),
	}
	for _, message := range history {
		view.known[message.ID] = struct{}{}
	}

	view.unsubscribe = s.feed.Subscribe(chatID, view.handleEvent)

	return view, nil
}

// History returns the channel's ordered messages with resolved authors.
func (s *messageService) History(ctx context.Context, query dto.ChatHistoryQuery, userID uint) ([]dto.ChatMessageView, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	if _, err := s.rooms.Authorize(ctx, query.ChatID, userID); err != nil {
		return nil, err
	}

	return s.loadHistory(ctx, query.ChatID, query.Limit)
}

// loadHistory reads messages in (created_at, id) order and attaches author
// display fields resolved in one batched lookup.
func (s *messageService) loadHistory(ctx context.Context, chatID string, limit int) ([]dto.ChatMessageView, error) {
	messages, err := s.chats.ListMessages(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	seen := make(map[uint]struct{}, len(messages))
	authorIDs := make([]uint, 0, len(messages))
	for _, message := range messages {
		if _, ok := seen[message.SenderID]; ok {
			continue
		}
		seen[message.SenderID] = struct{}{}
		authorIDs = append(authorIDs, message.SenderID)
	}

	authors, err := s.users.ListByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	byID := make(map[uint]models.User, len(authors))
	for _, author := range authors {
		byID[author.ID] = author
	}

	views := make([]dto.ChatMessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, dto.NewChatMessageView(message, byID[message.SenderID]))
	}
	return views, nil
}

// Messages returns a snapshot of the ordered message list.
func (v *ChannelView) Messages() []dto.ChatMessageView {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]dto.ChatMessageView, len(v.messages))
	copy(out, v.messages)
	return out
}

// Events yields messages appended to the view after it was opened.
func (v *ChannelView) Events() <-chan dto.ChatMessageView {
	return v.events
}

// Send posts a message to the channel. The message identifier is generated
// locally and inserted into the dedup set before the write, so the live feed
// echo of the viewer's own message is suppressed instead of appended twice.
// There is no automatic retry; resending is the user's decision.
func (v *ChannelView) Send(ctx context.Context, content string) (dto.ChatMessageView, error) {
	s := v.service

	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.id", v.chat.ID),
		attribute.Int64("chat.sender_id", int64(v.userID)),
	))
	defer span.End()

	// Approval may have been revoked since the view was opened.
	if _, err := s.rooms.Authorize(ctx, v.chat.ID, v.userID); err != nil {
		return dto.ChatMessageView{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if clean == "" {
		return dto.ChatMessageView{}, ErrEmptyMessage
	}

	message := models.TripMessage{
		ID:       uuid.NewString(),
		ChatID:   v.chat.ID,
		SenderID: v.userID,
		Content:  clean,
	}

	v.mu.Lock()
	v.known[message.ID] = struct{}{}
	v.mu.Unlock()

	if err := s.chats.CreateMessage(ctx, &message); err != nil {
		span.RecordError(err)
		v.mu.Lock()
		delete(v.known, message.ID)
		v.mu.Unlock()
		return dto.ChatMessageView{}, fmt.Errorf("store message: %w", err)
	}

	author, err := s.users.GetByID(ctx, v.userID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", v.userID).Msg("failed to resolve sender profile")
	}
	view := dto.NewChatMessageView(message, author)

	v.mu.Lock()
	// The store may have assigned timestamps or normalised the id; cover the
	// case where it differs from the provisional one.
	v.known[message.ID] = struct{}{}
	v.insertOrderedLocked(view)
	v.mu.Unlock()

	if err := s.feed.Publish(ctx, MessageEvent{Message: message}); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", v.chat.ID).Msg("failed to publish message event")
	}

	observability.ChatMessages().WithLabelValues("sent").Inc()

	return view, nil
}

// Close detaches the live feed and discards the view's dedup state.
func (v *ChannelView) Close() {
	v.closeOnce.Do(func() {
		if v.unsubscribe != nil {
			v.unsubscribe()
		}
		close(v.closed)
		close(v.events)
	})
}

// handleEvent merges one live feed delivery into the view. Already-known
// identifiers are dropped; new messages get their author resolved, are
// flagged as fresh for presentation, and are inserted in order.
func (v *ChannelView) handleEvent(event MessageEvent) {
	select {
	case <-v.closed:
		return
	default:
	}

	message := event.Message
	if message.ChatID != v.chat.ID {
		return
	}

	v.mu.Lock()
	if _, duplicate := v.known[message.ID]; duplicate {
		v.mu.Unlock()
		observability.ChatDuplicatesDropped().Inc()
		return
	}
	v.known[message.ID] = struct{}{}
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	author, err := v.service.users.GetByID(ctx, message.SenderID)
	if err != nil {
		v.service.logger.Warn().Err(err).Uint("user_id", message.SenderID).Msg("failed to resolve message author")
	}

	view := dto.NewChatMessageView(message, author)
	view.New = true

	v.mu.Lock()
	v.insertOrderedLocked(view)
	v.mu.Unlock()

	observability.ChatMessages().WithLabelValues("received").Inc()

	select {
	case v.events <- view:
	case <-v.closed:
	default:
		v.service.logger.Warn().Str("chat_id", v.chat.ID).Msg("dropping live message for slow view consumer")
	}
}

// insertOrderedLocked places the message at its sort position: created_at
// ascending with id as tie-break. The caller holds v.mu.
func (v *ChannelView) insertOrderedLocked(message dto.ChatMessageView) {
	index := sort.Search(len(v.messages), func(i int) bool {
		if !v.messages[i].CreatedAt.Equal(message.CreatedAt) {
			return v.messages[i].CreatedAt.After(message.CreatedAt)
		}
		return v.messages[i].ID > message.ID
	})

	v.messages = append(v.messages, dto.ChatMessageView{})
	copy(v.messages[index+1:], v.messages[index:])
	v.messages[index] = message
}
