package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"yagptchat/internal/crypto"
	"yagptchat/internal/models"
	"yagptchat/internal/store"
	"yagptchat/internal/yandexgpt"

	"github.com/google/uuid"
)

// mockStore is an in-memory store.Store for service tests.
type mockStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	profiles      map[uuid.UUID]*models.Profile
	conversations map[uuid.UUID]*models.Conversation
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         make(map[uuid.UUID]*models.User),
		profiles:      make(map[uuid.UUID]*models.Profile),
		conversations: make(map[uuid.UUID]*models.Conversation),
	}
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *profile
	m.profiles[profile.ID] = &copied
	return nil
}

func (m *mockStore) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) UpdateProfileAPIKey(ctx context.Context, userID uuid.UUID, encryptedAPIKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	p.EncryptedAPIKey = encryptedAPIKey
	return nil
}

func (m *mockStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	messages := arg.Messages
	if messages == nil {
		messages = json.RawMessage("[]")
	}
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        id,
		UserID:    arg.UserID,
		Title:     arg.Title,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[id] = conv
	copied := *conv
	return &copied, nil
}

func (m *mockStore) GetConversationByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, store.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *mockStore) ListConversationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateConversationTitle(ctx context.Context, id uuid.UUID, userID uuid.UUID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return store.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockStore) UpdateConversationMessages(ctx context.Context, id uuid.UUID, userID uuid.UUID, messages json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return store.ErrNotFound
	}
	conv.Messages = messages
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// mockCompleter scripts completion results and records title requests.
type mockCompleter struct {
	mu          sync.Mutex
	completeFn  func(history []yandexgpt.Message) (string, error)
	titleResult string
	titleCalls  [][2]string
}

func (m *mockCompleter) Complete(ctx context.Context, apiKey string, history []yandexgpt.Message) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(history)
	}
	return "ответ", nil
}

func (m *mockCompleter) SuggestTitle(ctx context.Context, apiKey, userMessage, assistantMessage string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titleCalls = append(m.titleCalls, [2]string{userMessage, assistantMessage})
	if m.titleResult != "" {
		return m.titleResult
	}
	return yandexgpt.FallbackTitle
}

func (m *mockCompleter) titleCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titleCalls)
}

func testConversationService(t *testing.T, completer *mockCompleter) (*ConversationService, *mockStore, uuid.UUID) {
	t.Helper()

	db := newMockStore()
	aead, err := crypto.NewAESGCM(make([]byte, 32))
	if err != nil {
		t.Fatalf("failed to build cipher: %v", err)
	}
	encrypted, err := crypto.Encrypt(aead, []byte("api-key"))
	if err != nil {
		t.Fatalf("failed to encrypt test key: %v", err)
	}

	userID := uuid.New()
	db.profiles[userID] = &models.Profile{ID: userID, EncryptedAPIKey: encrypted}

	profiles := NewProfileService(db, aead)
	svc := NewConversationService(db, profiles, completer)
	return svc, db, userID
}

func TestCreateUsesDefaultTitle(t *testing.T) {
	svc, _, userID := testConversationService(t, &mockCompleter{})

	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if conv.Title != DefaultConversationTitle {
		t.Errorf("expected default title %q, got %q", DefaultConversationTitle, conv.Title)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected empty message list, got %d", len(conv.Messages))
	}
}

func TestAppendMessageRejectsEmptyContent(t *testing.T) {
	svc, _, userID := testConversationService(t, &mockCompleter{})
	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.AppendMessage(context.Background(), userID, conv.ID, models.RoleUser, "", time.Time{})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestGetUnknownConversation(t *testing.T) {
	svc, _, userID := testConversationService(t, &mockCompleter{})
	if _, err := svc.Get(context.Background(), userID, uuid.New()); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	svc, _, userID := testConversationService(t, &mockCompleter{})
	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), uuid.New(), conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for foreign user, got %v", err)
	}
}

func TestSendMessageAppendsExchange(t *testing.T) {
	completer := &mockCompleter{
		completeFn: func(history []yandexgpt.Message) (string, error) {
			if len(history) != 1 || history[0].Role != models.RoleUser || history[0].Text != "привет" {
				t.Errorf("unexpected history passed to completion: %+v", history)
			}
			return "здравствуйте", nil
		},
	}
	svc, _, userID := testConversationService(t, completer)
	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	updated, err := svc.SendMessage(context.Background(), userID, conv.ID, "привет", sentAt)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	svc.Wait()

	if len(updated.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(updated.Messages))
	}
	userMsg, reply := updated.Messages[0], updated.Messages[1]
	if userMsg.Role != models.RoleUser || userMsg.Content != "привет" {
		t.Errorf("unexpected user message: %+v", userMsg)
	}
	if !userMsg.Timestamp.Equal(sentAt) {
		t.Errorf("expected client timestamp stored verbatim, got %v", userMsg.Timestamp)
	}
	if reply.Role != models.RoleAssistant || reply.Content != "здравствуйте" {
		t.Errorf("unexpected assistant message: %+v", reply)
	}
}

func TestSendMessageCompletionFailureBecomesReply(t *testing.T) {
	completer := &mockCompleter{
		completeFn: func([]yandexgpt.Message) (string, error) {
			return "", &yandexgpt.CompletionError{Reason: "unexpected status 401"}
		},
	}
	svc, _, userID := testConversationService(t, completer)
	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.SendMessage(context.Background(), userID, conv.ID, "привет", time.Time{})
	if err != nil {
		t.Fatalf("completion failure must not fail the send: %v", err)
	}
	svc.Wait()

	if len(updated.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(updated.Messages))
	}
	reply := updated.Messages[1]
	if reply.Role != models.RoleAssistant {
		t.Errorf("expected assistant role, got %q", reply.Role)
	}
	if reply.Content != "Ошибка API: unexpected status 401" {
		t.Errorf("unexpected synthetic reply: %q", reply.Content)
	}
}

func TestTitleGeneratedOnceAfterFirstExchange(t *testing.T) {
	completer := &mockCompleter{titleResult: "Спор о погоде"}
	svc, db, userID := testConversationService(t, completer)
	conv, err := svc.Create(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.SendMessage(context.Background(), userID, conv.ID, "какая погода?", time.Time{}); err != nil {
		t.Fatalf("first SendMessage failed: %v", err)
	}
	svc.Wait()

	if got := completer.titleCallCount(); got != 1 {
		t.Fatalf("expected exactly one title attempt, got %d", got)
	}
	call := completer.titleCalls[0]
	if call[0] != "какая погода?" || call[1] != "ответ" {
		t.Errorf("title generated from wrong exchange: %+v", call)
	}

	stored, err := db.GetConversationByID(context.Background(), conv.ID, userID)
	if err != nil {
		t.Fatalf("failed to read conversation back: %v", err)
	}
	if stored.Title != "Спор о погоде" {
		t.Errorf("expected generated title persisted, got %q", stored.Title)
	}

	// Later exchanges must not retrigger title generation.
	if _, err := svc.SendMessage(context.Background(), userID, conv.ID, "а завтра?", time.Time{}); err != nil {
		t.Fatalf("second SendMessage failed: %v", err)
	}
	svc.Wait()
	if got := completer.titleCallCount(); got != 1 {
		t.Errorf("title generation retriggered: %d attempts", got)
	}
}

func TestRenameUnknownConversation(t *testing.T) {
	svc, _, userID := testConversationService(t, &mockCompleter{})
	err := svc.Rename(context.Background(), userID, uuid.New(), "title")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}
