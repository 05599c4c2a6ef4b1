package dto

import (
	"time"

	"github.com/wanderly/wanderly-api/internal/models"
)

// UserResponse is the public representation of a profile.
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO. Email is included only for the
// owner's own profile view.
func NewUserResponse(user models.User, includeEmail bool) UserResponse {
	response := UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Handle:    user.Handle,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
	if includeEmail {
		response.Email = user.Email
	}
	return response
}

// UserUpdateRequest updates mutable profile fields.
type UserUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=120"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=512"`
}
