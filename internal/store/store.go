package store

import (
	"context"
	"encoding/json"
	"errors"

	"yagptchat/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Title    string
	Messages json.RawMessage // JSON array; nil means empty
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Profile operations
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfileAPIKey(ctx context.Context, userID uuid.UUID, encryptedAPIKey []byte) error

	// Conversation operations. Every query is scoped by user_id so one
	// user can never read or write another user's rows.
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id uuid.UUID, userID uuid.UUID, title string) error
	UpdateConversationMessages(ctx context.Context, id uuid.UUID, userID uuid.UUID, messages json.RawMessage) error
}
