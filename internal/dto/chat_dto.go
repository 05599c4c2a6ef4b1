package dto

import (
	"time"

	"github.com/wanderly/wanderly-api/internal/models"
)

// ChatResponse identifies the discussion channel bound to a trip.
type ChatResponse struct {
	ID        string    `json:"id"`
	TripID    uint      `json:"trip_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatResponse converts a model into a DTO.
func NewChatResponse(chat models.TripChat) ChatResponse {
	return ChatResponse{
		ID:        chat.ID,
		TripID:    chat.TripID,
		CreatedAt: chat.CreatedAt,
	}
}

// ChatSendRequest is the payload a websocket client sends to post a message.
type ChatSendRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// MessageAuthor carries the denormalized display fields attached to a message
// at read time.
type MessageAuthor struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ChatMessageView is a message enriched for presentation. New marks messages
// that arrived over the live feed after the view was opened.
type ChatMessageView struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	Content   string        `json:"content"`
	Author    MessageAuthor `json:"author"`
	New       bool          `json:"new,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewChatMessageView combines a message row with its resolved author.
func NewChatMessageView(message models.TripMessage, author models.User) ChatMessageView {
	return ChatMessageView{
		ID:      message.ID,
		ChatID:  message.ChatID,
		Content: message.Content,
		Author: MessageAuthor{
			ID:        author.ID,
			Name:      author.Name,
			Handle:    author.Handle,
			AvatarURL: author.AvatarURL,
		},
		CreatedAt: message.CreatedAt,
	}
}

// ChatHistoryQuery filters the message history endpoint.
type ChatHistoryQuery struct {
	ChatID string `query:"chat_id" validate:"required,uuid4"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
}
