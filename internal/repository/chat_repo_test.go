package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wanderly/wanderly-api/internal/models"
)

func TestChatRepositoryChatsOrderedOldestFirst(t *testing.T) {
	db := setupTripTestDB(t, &models.TripChat{})
	repo := NewChatRepository(db)

	base := time.Now().UTC().Truncate(time.Second)
	later := models.TripChat{ID: uuid.NewString(), TripID: 1, CreatedAt: base.Add(time.Hour)}
	earliest := models.TripChat{ID: uuid.NewString(), TripID: 1, CreatedAt: base}
	other := models.TripChat{ID: uuid.NewString(), TripID: 2, CreatedAt: base}

	require.NoError(t, repo.CreateChat(context.Background(), &later))
	require.NoError(t, repo.CreateChat(context.Background(), &earliest))
	require.NoError(t, repo.CreateChat(context.Background(), &other))

	chats, err := repo.ListChatsByTrip(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, earliest.ID, chats[0].ID)
	require.Equal(t, later.ID, chats[1].ID)
}

func TestChatRepositoryDeleteChat(t *testing.T) {
	db := setupTripTestDB(t, &models.TripChat{})
	repo := NewChatRepository(db)

	chat := models.TripChat{ID: uuid.NewString(), TripID: 1}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))
	require.NoError(t, repo.DeleteChat(context.Background(), chat.ID))

	_, err := repo.GetChat(context.Background(), chat.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatRepositoryMessagesOrderedWithTieBreak(t *testing.T) {
	db := setupTripTestDB(t, &models.TripMessage{})
	repo := NewChatRepository(db)

	chatID := uuid.NewString()
	at := time.Now().UTC().Truncate(time.Second)

	// Two messages share a timestamp; the id decides their order.
	b := models.TripMessage{ID: "bbbbbbbb-0000-4000-8000-000000000002", ChatID: chatID, SenderID: 1, Content: "b", CreatedAt: at}
	a := models.TripMessage{ID: "aaaaaaaa-0000-4000-8000-000000000001", ChatID: chatID, SenderID: 1, Content: "a", CreatedAt: at}
	later := models.TripMessage{ID: uuid.NewString(), ChatID: chatID, SenderID: 2, Content: "later", CreatedAt: at.Add(time.Minute)}

	require.NoError(t, repo.CreateMessage(context.Background(), &b))
	require.NoError(t, repo.CreateMessage(context.Background(), &a))
	require.NoError(t, repo.CreateMessage(context.Background(), &later))

	messages, err := repo.ListMessages(context.Background(), chatID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "a", messages[0].Content)
	require.Equal(t, "b", messages[1].Content)
	require.Equal(t, "later", messages[2].Content)

	limited, err := repo.ListMessages(context.Background(), chatID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "b", limited[0].Content)
	require.Equal(t, "later", limited[1].Content)
}

func TestChatRepositoryFullHistoryIncludesNewestMessages(t *testing.T) {
	db := setupTripTestDB(t, &models.TripMessage{})
	repo := NewChatRepository(db)

	chatID := uuid.NewString()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	total := 250
	for i := 0; i < total; i++ {
		message := models.TripMessage{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			SenderID:  1,
			Content:   fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateMessage(context.Background(), &message))
	}

	messages, err := repo.ListMessages(context.Background(), chatID, 0)
	require.NoError(t, err)
	require.Len(t, messages, total)
	require.Equal(t, "msg-0", messages[0].Content)
	require.Equal(t, fmt.Sprintf("msg-%d", total-1), messages[total-1].Content)
}

func TestChatRepositoryLimitedHistoryKeepsNewestWindow(t *testing.T) {
	db := setupTripTestDB(t, &models.TripMessage{})
	repo := NewChatRepository(db)

	chatID := uuid.NewString()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	for i := 0; i < 30; i++ {
		message := models.TripMessage{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			SenderID:  1,
			Content:   fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateMessage(context.Background(), &message))
	}

	messages, err := repo.ListMessages(context.Background(), chatID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 10)
	require.Equal(t, "msg-20", messages[0].Content)
	require.Equal(t, "msg-29", messages[9].Content)
}
