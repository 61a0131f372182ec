// Package chatstate holds the client-side state of a chat session: the
// signed-in user, the conversation list, and the reconciliation of the
// locally pending message against the server's authoritative sequence.
package chatstate

import (
	"context"
	"time"

	"yagptchat/internal/models"

	"github.com/google/uuid"
)

// Backend is what the state layer needs from the remote service.
// Implemented by the HTTP API client; tests substitute fakes.
type Backend interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Signup(ctx context.Context, email, password, apiKey string) error
	FetchProfile(ctx context.Context) (*models.ProfileResponse, error)
	UpdateProfile(ctx context.Context, apiKey string) (*models.ProfileResponse, error)
	ListConversations(ctx context.Context) ([]models.ConversationResponse, error)
	CreateConversation(ctx context.Context, title string) (*models.ConversationResponse, error)
	RenameConversation(ctx context.Context, id uuid.UUID, title string) (*models.ConversationResponse, error)
	SendMessage(ctx context.Context, id uuid.UUID, content string, sentAt time.Time) (*models.ConversationResponse, error)
}
