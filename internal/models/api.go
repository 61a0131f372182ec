package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
// The Yandex API key is captured at sign-up and stored in the profile.
type SignupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	YandexAPIKey string `json:"yandex_api_key"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest defines the body for replacing the stored API key.
type UpdateProfileRequest struct {
	YandexAPIKey string `json:"yandex_api_key"`
}

// CreateConversationRequest defines the payload for creating a conversation.
// Title is optional; a default is used when absent.
type CreateConversationRequest struct {
	Title *string `json:"title,omitempty"`
}

// RenameConversationRequest defines the payload for retitling a conversation.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest defines the payload for sending a user message.
// SentAt, when present, is the client-side timestamp of the message;
// the server stores it verbatim so the client can match its pending
// copy against the persisted sequence.
type SendMessageRequest struct {
	Content string     `json:"content"`
	SentAt  *time.Time `json:"sent_at,omitempty"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProfileResponse returns the decrypted API key to its owner, matching
// the original app where the key is shown/edited on the profile view.
type ProfileResponse struct {
	ID           uuid.UUID `json:"id"`
	YandexAPIKey string    `json:"yandex_api_key"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationResponse defines the standard representation of a conversation.
type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListConversationsResponse defines the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}
