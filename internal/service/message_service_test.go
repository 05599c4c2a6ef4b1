package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wanderly/wanderly-api/internal/dto"
	"github.com/wanderly/wanderly-api/internal/models"
)

type messageFixture struct {
	chats    *chatRepoStub
	users    *userRepoStub
	feed     ChatFeed
	svc      MessageService
	chatID   string
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	chats := &chatRepoStub{}
	trips := newTripRepoStub(models.Trip{ID: 1, CreatorID: 1, Spots: 3, Status: models.TripStatusActive})
	participants := newParticipantRepoStub(
		models.TripParticipant{ID: 10, TripID: 1, UserID: 2, Status: models.ParticipantStatusApproved},
	)
	users := newUserRepoStub(
		models.User{ID: 1, Name: "Ana", Handle: "ana"},
		models.User{ID: 2, Name: "Ben", Handle: "ben"},
	)

	rooms := NewChatRoomService(chats, trips, participants, testLogger())
	feed := NewChatFeed(nil, "", nil, testLogger())
	feed.Start(context.Background())

	svc := NewMessageService(chats, users, rooms, feed, validator.New(validator.WithRequiredStructEnabled()), testLogger())

	chatID := uuid.NewString()
	require.NoError(t, chats.CreateChat(context.Background(), &models.TripChat{ID: chatID, TripID: 1}))

	return &messageFixture{chats: chats, users: users, feed: feed, svc: svc, chatID: chatID}
}

func (f *messageFixture) seedMessage(t *testing.T, senderID uint, content string, at time.Time) models.TripMessage {
	t.Helper()
	message := models.TripMessage{
		ID:        uuid.NewString(),
		ChatID:    f.chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, f.chats.CreateMessage(context.Background(), &message))
	return message
}

func TestOpenViewLoadsOrderedHistory(t *testing.T) {
	fixture := newMessageFixture(t)
	base := time.Now().UTC().Add(-time.Hour)

	second := fixture.seedMessage(t, 2, "second", base.Add(time.Minute))
	first := fixture.seedMessage(t, 1, "first", base)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 2)
	require.NoError(t, err)
	defer view.Close()

	messages := view.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, first.ID, messages[0].ID)
	require.Equal(t, second.ID, messages[1].ID)
	require.Equal(t, "ana", messages[0].Author.Handle)
	require.False(t, messages[0].New)
}

func TestOpenViewRequiresAuthorization(t *testing.T) {
	fixture := newMessageFixture(t)

	_, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 42)
	require.ErrorIs(t, err, ErrChatAccessDenied)
}

func TestSendEchoIsSuppressed(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 2)
	require.NoError(t, err)
	defer view.Close()

	sent, err := view.Send(context.Background(), "hello there")
	require.NoError(t, err)
	require.Equal(t, "hello there", sent.Content)

	// The feed dispatched the publish back to this view synchronously; the
	// dedup set must have absorbed the echo.
	messages := view.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, sent.ID, messages[0].ID)

	select {
	case event := <-view.Events():
		t.Fatalf("unexpected live event for own message: %+v", event)
	default:
	}
}

func TestSendRejectsEmptyAfterSanitisation(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 2)
	require.NoError(t, err)
	defer view.Close()

	_, err = view.Send(context.Background(), "<script>alert(1)</script>")
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Empty(t, fixture.chats.messages)
}

func TestSendStripsMarkup(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 2)
	require.NoError(t, err)
	defer view.Close()

	sent, err := view.Send(context.Background(), "<b>meet</b> at noon")
	require.NoError(t, err)
	require.Equal(t, "meet at noon", sent.Content)
}

func TestLiveMessageReachesOtherViews(t *testing.T) {
	fixture := newMessageFixture(t)

	creatorView, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 1)
	require.NoError(t, err)
	defer creatorView.Close()

	participantView, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 2)
	require.NoError(t, err)
	defer participantView.Close()

	sent, err := participantView.Send(context.Background(), "on my way")
	require.NoError(t, err)

	select {
	case event := <-creatorView.Events():
		require.Equal(t, sent.ID, event.ID)
		require.True(t, event.New)
		require.Equal(t, "ben", event.Author.Handle)
	case <-time.After(time.Second):
		t.Fatal("expected live delivery to the other view")
	}

	messages := creatorView.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, sent.ID, messages[0].ID)
}

func TestDuplicateFeedDeliveryIsDropped(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 1)
	require.NoError(t, err)
	defer view.Close()

	message := models.TripMessage{
		ID:        uuid.NewString(),
		ChatID:    fixture.chatID,
		SenderID:  2,
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: message}))
	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: message}))

	require.Len(t, view.Messages(), 1)
}

func TestLiveMessagesKeepSortOrder(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 1)
	require.NoError(t, err)
	defer view.Close()

	base := time.Now().UTC()
	newer := models.TripMessage{ID: uuid.NewString(), ChatID: fixture.chatID, SenderID: 2, Content: "newer", CreatedAt: base.Add(time.Minute)}
	older := models.TripMessage{ID: uuid.NewString(), ChatID: fixture.chatID, SenderID: 2, Content: "older", CreatedAt: base}

	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: newer}))
	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: older}))

	messages := view.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "older", messages[0].Content)
	require.Equal(t, "newer", messages[1].Content)
}

func TestEventsForOtherChannelsAreIgnored(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 1)
	require.NoError(t, err)
	defer view.Close()

	foreign := models.TripMessage{ID: uuid.NewString(), ChatID: uuid.NewString(), SenderID: 2, Content: "elsewhere", CreatedAt: time.Now().UTC()}
	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: foreign}))

	require.Empty(t, view.Messages())
}

func TestClosedViewIgnoresFeed(t *testing.T) {
	fixture := newMessageFixture(t)

	view, err := fixture.svc.OpenView(context.Background(), fixture.chatID, 1)
	require.NoError(t, err)
	view.Close()

	message := models.TripMessage{ID: uuid.NewString(), ChatID: fixture.chatID, SenderID: 2, Content: "late", CreatedAt: time.Now().UTC()}
	require.NoError(t, fixture.feed.Publish(context.Background(), MessageEvent{Message: message}))

	require.Empty(t, view.Messages())
}

func TestHistoryValidatesQuery(t *testing.T) {
	fixture := newMessageFixture(t)

	_, err := fixture.svc.History(context.Background(), dto.ChatHistoryQuery{ChatID: "not-a-uuid"}, 1)
	require.Error(t, err)

	_, err = fixture.svc.History(context.Background(), dto.ChatHistoryQuery{ChatID: fixture.chatID, Limit: 50}, 1)
	require.NoError(t, err)
}
