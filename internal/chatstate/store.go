package chatstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yagptchat/internal/models"

	"github.com/google/uuid"
)

// Custom errors for the conversation store
var (
	ErrNoConversation      = errors.New("no conversation selected")
	ErrUnknownConversation = errors.New("conversation not in store")
)

// Store is the client-side conversation state: the list of the user's
// conversations newest first, the currently open conversation, and the
// decrypted completion-API key. All remote writes go through the
// Backend; local state is rolled back when a remote write fails.
type Store struct {
	mu            sync.Mutex
	backend       Backend
	conversations []models.ConversationResponse
	currentID     uuid.UUID
	apiKey        string
	reconciler    *Reconciler
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend:    backend,
		reconciler: NewReconciler(),
	}
}

// Watch consumes the session event stream, tearing the store down on
// sign-out. Runs until the channel is drained; start it in a goroutine.
func (s *Store) Watch(events <-chan SessionEvent) {
	for ev := range events {
		if ev.Type == SignedOut {
			s.reset()
		}
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	s.conversations = nil
	s.currentID = uuid.Nil
	s.apiKey = ""
	s.mu.Unlock()
	s.reconciler.Clear()
}

// LoadAll fetches the profile and the full conversation list and
// replaces local state wholesale.
func (s *Store) LoadAll(ctx context.Context) error {
	profile, err := s.backend.FetchProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	convs, err := s.backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = profile.YandexAPIKey
	s.conversations = convs
	if s.currentID != uuid.Nil && s.indexOfLocked(s.currentID) < 0 {
		s.currentID = uuid.Nil
	}
	return nil
}

// APIKey returns the decrypted completion-API key loaded from the profile.
func (s *Store) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// UpdateAPIKey persists a new key and adopts the server's copy.
func (s *Store) UpdateAPIKey(ctx context.Context, apiKey string) error {
	profile, err := s.backend.UpdateProfile(ctx, apiKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.apiKey = profile.YandexAPIKey
	s.mu.Unlock()
	return nil
}

// Conversations returns a copy of the list, newest first.
func (s *Store) Conversations() []models.ConversationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationResponse, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Current returns the open conversation, if one is selected.
func (s *Store) Current() (models.ConversationResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfLocked(s.currentID)
	if idx < 0 {
		return models.ConversationResponse{}, false
	}
	return s.conversations[idx], true
}

// SetCurrent opens a conversation already in the store. Switching
// conversations abandons any pending message.
func (s *Store) SetCurrent(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfLocked(id) < 0 {
		return ErrUnknownConversation
	}
	if s.currentID != id {
		s.reconciler.Clear()
	}
	s.currentID = id
	return nil
}

// Create asks the backend for a new conversation, prepends it, and
// makes it current.
func (s *Store) Create(ctx context.Context, title string) (models.ConversationResponse, error) {
	conv, err := s.backend.CreateConversation(ctx, title)
	if err != nil {
		return models.ConversationResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append([]models.ConversationResponse{*conv}, s.conversations...)
	s.currentID = conv.ID
	s.reconciler.Clear()
	return *conv, nil
}

// Rename updates the matching conversation's title locally and remotely.
// A miss is a no-op. The local title rolls back when the remote write
// fails.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	previous := s.conversations[idx].Title
	s.conversations[idx].Title = title
	s.mu.Unlock()

	conv, err := s.backend.RenameConversation(ctx, id, title)
	if err != nil {
		s.mu.Lock()
		if idx = s.indexOfLocked(id); idx >= 0 {
			s.conversations[idx].Title = previous
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if idx = s.indexOfLocked(id); idx >= 0 {
		s.conversations[idx] = *conv
	}
	s.mu.Unlock()
	return nil
}

// Send submits a message in the current conversation. The message is
// displayed as pending until the server's reply arrives; on failure the
// pending message is withdrawn and local state is unchanged.
func (s *Store) Send(ctx context.Context, content string) (models.ConversationResponse, error) {
	s.mu.Lock()
	id := s.currentID
	if s.indexOfLocked(id) < 0 {
		s.mu.Unlock()
		return models.ConversationResponse{}, ErrNoConversation
	}
	s.mu.Unlock()

	pending := models.Message{
		ID:        uuid.New(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	s.reconciler.SetPending(pending)

	conv, err := s.backend.SendMessage(ctx, id, content, pending.Timestamp)
	if err != nil {
		s.reconciler.Clear()
		return models.ConversationResponse{}, err
	}

	s.mu.Lock()
	if idx := s.indexOfLocked(id); idx >= 0 {
		s.conversations[idx] = *conv
	}
	s.mu.Unlock()

	s.reconciler.Observe(conv.Messages)
	return *conv, nil
}

// Display returns the current conversation's messages merged with the
// pending message, ascending by timestamp.
func (s *Store) Display() []models.Message {
	conv, ok := s.Current()
	if !ok {
		return nil
	}
	return s.reconciler.Display(conv.Messages)
}

// indexOfLocked finds a conversation by id. Caller holds s.mu.
func (s *Store) indexOfLocked(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}
