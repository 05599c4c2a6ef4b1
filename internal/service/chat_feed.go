package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/observability"
)

const (
	feedInitialBackoff = 2 * time.Second
	feedMaxBackoff     = 30 * time.Second
	feedMaxAttempts    = 10
)

// MessageEvent is the single event kind carried by the live feed: one
// committed message row. Source identifies the publishing node so remote
// consumers can drop their own fan-out echoes.
type MessageEvent struct {
	Source  string             `json:"source"`
	Message models.TripMessage `json:"message"`
	SentAt  time.Time          `json:"sent_at"`
}

// ChatFeed delivers committed messages to subscribed channel views. Local
// subscribers receive published events directly; Redis pub/sub and NATS relay
// them across nodes.
type ChatFeed interface {
	Publish(ctx context.Context, event MessageEvent) error
	Subscribe(chatID string, fn func(MessageEvent)) (unsubscribe func())
	Ready() bool
	Start(ctx context.Context)
}

type liveFeed struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string

	mu          sync.RWMutex
	subscribers map[string]map[*feedSubscriber]struct{}

	ready atomic.Bool

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    int
}

type feedSubscriber struct {
	chatID string
	fn     func(MessageEvent)
}

// NewChatFeed constructs the live message feed. Redis and NATS are both
// optional; with neither configured the feed still dispatches locally, which
// is the single-node mode used in tests.
func NewChatFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ChatFeed {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":messages"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &liveFeed{
		redis:          redisClient,
		redisStream:    stream,
		nats:           natsConn,
		natsSubject:    subject,
		logger:         logger.With().Str("component", "chat_feed").Logger(),
		nodeID:         uuid.NewString(),
		subscribers:    make(map[string]map[*feedSubscriber]struct{}),
		initialBackoff: feedInitialBackoff,
		maxBackoff:     feedMaxBackoff,
		maxAttempts:    feedMaxAttempts,
	}
}

func (f *liveFeed) Start(ctx context.Context) {
	f.ready.Store(true)
	if f.redis != nil && f.redisStream != "" {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		go f.consumeNATS(ctx)
	}
}

// Ready reports whether the cross-node relay is currently attached. Local
// dispatch keeps working while the relay reconnects.
func (f *liveFeed) Ready() bool {
	return f.ready.Load()
}

func (f *liveFeed) Publish(ctx context.Context, event MessageEvent) error {
	event.Source = f.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	// Local subscribers get the event immediately, including the sender's
	// own view; the per-view dedup set absorbs that echo.
	f.dispatch(event)

	if f.redis == nil && f.nats == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if f.redis != nil && f.redisStream != "" {
		if err := f.redis.Publish(ctx, f.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (f *liveFeed) Subscribe(chatID string, fn func(MessageEvent)) func() {
	subscriber := &feedSubscriber{chatID: chatID, fn: fn}

	f.mu.Lock()
	if _, exists := f.subscribers[chatID]; !exists {
		f.subscribers[chatID] = make(map[*feedSubscriber]struct{})
	}
	f.subscribers[chatID][subscriber] = struct{}{}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		if subs, ok := f.subscribers[chatID]; ok {
			delete(subs, subscriber)
			if len(subs) == 0 {
				delete(f.subscribers, chatID)
			}
		}
		f.mu.Unlock()
	}
}

func (f *liveFeed) dispatch(event MessageEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for subscriber := range f.subscribers[event.Message.ChatID] {
		subscriber.fn(event)
	}
}

func (f *liveFeed) handleRemote(data []byte) {
	var event MessageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		f.logger.Warn().Err(err).Msg("invalid message event")
		return
	}

	if event.Source == f.nodeID {
		return
	}

	f.dispatch(event)
}

// consumeRedis attaches the Redis relay and keeps it attached. Lost
// connections are retried with escalating backoff up to a fixed attempt
// budget; an exhausted budget leaves local dispatch running and is logged as
// an error rather than retried forever.
func (f *liveFeed) consumeRedis(ctx context.Context) {
	backoff := f.initialBackoff
	attempts := 0

	for {
		pubsub := f.redis.Subscribe(ctx, f.redisStream)

		if _, err := pubsub.Receive(ctx); err == nil {
			f.ready.Store(true)
			backoff = f.initialBackoff
			attempts = 0

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						_ = pubsub.Close()
						return
					}
					f.logger.Warn().Err(err).Msg("message feed relay lost")
					break
				}
				f.handleRemote([]byte(msg.Payload))
			}
		}

		_ = pubsub.Close()
		f.ready.Store(false)

		if ctx.Err() != nil {
			return
		}

		attempts++
		observability.FeedReconnects().Inc()
		if f.maxAttempts > 0 && attempts >= f.maxAttempts {
			f.logger.Error().Int("attempts", attempts).Msg("message feed relay gave up reconnecting")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

func (f *liveFeed) consumeNATS(ctx context.Context) {
	sub, err := f.nats.QueueSubscribe(f.natsSubject, "wanderly-chat", func(msg *nats.Msg) {
		f.handleRemote(msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats message subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain nats message subscription")
		}
	}()
}
