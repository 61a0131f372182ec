package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"yagptchat/internal/models"
	"yagptchat/internal/store"
	"yagptchat/internal/yandexgpt"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// DefaultConversationTitle is given to freshly created conversations
// until the model suggests a real one.
const DefaultConversationTitle = "Новый диалог"

// Custom errors for conversation service
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message content cannot be empty")
)

// Completer is the slice of the completion client the conversation
// service needs. Satisfied by *yandexgpt.Client.
type Completer interface {
	Complete(ctx context.Context, apiKey string, history []yandexgpt.Message) (string, error)
	SuggestTitle(ctx context.Context, apiKey, userMessage, assistantMessage string) string
}

// ConversationService owns conversation state transitions: creation,
// renaming, message appends, completion calls, and the one-shot title
// generation after the first user/assistant exchange.
type ConversationService struct {
	store     store.Store
	profiles  *ProfileService
	gpt       Completer
	titleJobs *conc.WaitGroup
}

func NewConversationService(s store.Store, profiles *ProfileService, gpt Completer) *ConversationService {
	return &ConversationService{
		store:     s,
		profiles:  profiles,
		gpt:       gpt,
		titleJobs: conc.NewWaitGroup(),
	}
}

// Wait blocks until in-flight title generation jobs finish. Called on
// shutdown and by tests; panics from jobs are re-raised here.
func (s *ConversationService) Wait() {
	s.titleJobs.Wait()
}

// mapConversationToResponse converts a DB conversation to an API DTO,
// parsing the JSONB message array and enforcing ascending timestamp order.
func mapConversationToResponse(conv *models.Conversation) (*models.ConversationResponse, error) {
	var messages []models.Message
	if err := json.Unmarshal(conv.Messages, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation messages: %w", err)
	}
	models.SortMessagesByTimestamp(messages)

	return &models.ConversationResponse{
		ID:        conv.ID,
		UserID:    conv.UserID,
		Title:     conv.Title,
		Messages:  messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}, nil
}

// Create persists a new conversation with an empty message sequence.
func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID, title string) (*models.ConversationResponse, error) {
	if title == "" {
		title = DefaultConversationTitle
	}

	conv, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation in store: %w", err)
	}

	return mapConversationToResponse(conv)
}

// Get retrieves one conversation owned by userID.
func (s *ConversationService) Get(ctx context.Context, userID, convID uuid.UUID) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversationByID(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation from store: %w", err)
	}
	return mapConversationToResponse(conv)
}

// List retrieves all conversations owned by userID, newest first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) (*models.ListConversationsResponse, error) {
	convs, err := s.store.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations from store: %w", err)
	}

	responses := make([]models.ConversationResponse, 0, len(convs))
	for i := range convs {
		resp, err := mapConversationToResponse(&convs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to map conversation at index %d: %w", i, err)
		}
		responses = append(responses, *resp)
	}

	return &models.ListConversationsResponse{Conversations: responses}, nil
}

// Rename persists a new title for one conversation.
func (s *ConversationService) Rename(ctx context.Context, userID, convID uuid.UUID, title string) error {
	if err := s.store.UpdateConversationTitle(ctx, convID, userID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	return nil
}

// AppendMessage stamps and appends a message to the conversation's
// sequence and persists the result. A zero `at` means the server clock;
// a client-supplied timestamp is stored verbatim. When the append makes
// the count exactly 2 and the new message is an assistant reply, title
// generation runs in the background; its outcome never affects the
// append.
func (s *ConversationService) AppendMessage(ctx context.Context, userID, convID uuid.UUID, role, content string, at time.Time) (*models.ConversationResponse, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.store.GetConversationByID(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(conv.Messages, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation messages: %w", err)
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	msg := models.Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
	messages = append(messages, msg)

	updated, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal updated messages: %w", err)
	}
	if err := s.store.UpdateConversationMessages(ctx, convID, userID, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to persist messages: %w", err)
	}

	// First full exchange complete: exactly one title attempt per
	// conversation, keyed off the 1 -> 2 count transition.
	if len(messages) == 2 && role == models.RoleAssistant && messages[0].Role == models.RoleUser {
		s.generateTitleAsync(userID, convID, messages[0].Content, content)
	}

	conv.Messages = updated
	return mapConversationToResponse(conv)
}

// generateTitleAsync runs title generation without blocking the append.
// Failures are absorbed: SuggestTitle falls back internally, and a failed
// rename is only logged.
func (s *ConversationService) generateTitleAsync(userID, convID uuid.UUID, userMessage, assistantMessage string) {
	s.titleJobs.Go(func() {
		// Detached from the request context: the append already returned.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		apiKey, err := s.profiles.APIKey(ctx, userID)
		if err != nil {
			log.Printf("WARN [ConversationService] title generation skipped for %s: %v", convID, err)
			return
		}

		title := s.gpt.SuggestTitle(ctx, apiKey, userMessage, assistantMessage)
		if err := s.Rename(ctx, userID, convID, title); err != nil {
			log.Printf("WARN [ConversationService] failed to save generated title for %s: %v", convID, err)
		}
	})
}

// SendMessage appends the user's message, runs the completion over the
// full history, and appends the assistant reply. A completion failure is
// converted into a synthetic assistant message describing the error, so
// the chat never surfaces a hard failure for a failed model call.
func (s *ConversationService) SendMessage(ctx context.Context, userID, convID uuid.UUID, content string, sentAt time.Time) (*models.ConversationResponse, error) {
	afterUser, err := s.AppendMessage(ctx, userID, convID, models.RoleUser, content, sentAt)
	if err != nil {
		return nil, err
	}

	apiKey, err := s.profiles.APIKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := make([]yandexgpt.Message, 0, len(afterUser.Messages))
	for _, m := range afterUser.Messages {
		history = append(history, yandexgpt.Message{Role: m.Role, Text: m.Content})
	}

	reply, err := s.gpt.Complete(ctx, apiKey, history)
	if err != nil {
		var compErr *yandexgpt.CompletionError
		if !errors.As(err, &compErr) {
			return nil, fmt.Errorf("completion call failed: %w", err)
		}
		log.Printf("WARN [ConversationService] completion failed for %s: %v", convID, err)
		reply = fmt.Sprintf("Ошибка API: %s", compErr.Reason)
	}

	return s.AppendMessage(ctx, userID, convID, models.RoleAssistant, reply, time.Time{})
}
