package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yagptchat/internal/auth"
	"yagptchat/internal/handlers"
	"yagptchat/internal/models"
	"yagptchat/internal/services"

	"github.com/google/uuid"
)

const testSecret = "router-test-secret"

type stubAuthService struct {
	userID uuid.UUID
}

func (s *stubAuthService) Signup(ctx context.Context, email, password, apiKey string) (*models.User, error) {
	return &models.User{ID: s.userID, Email: email}, nil
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if password != "correct" {
		return "", nil, services.ErrInvalidCredentials
	}
	token, err := auth.NewAccessToken(s.userID, email, testSecret, time.Hour)
	if err != nil {
		return "", nil, err
	}
	return token, &models.User{ID: s.userID, Email: email}, nil
}

type stubProfileService struct{}

func (s *stubProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.ProfileResponse, error) {
	return &models.ProfileResponse{ID: userID, YandexAPIKey: "key"}, nil
}

func (s *stubProfileService) UpdateAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) (*models.ProfileResponse, error) {
	return &models.ProfileResponse{ID: userID, YandexAPIKey: apiKey}, nil
}

type stubConversationService struct {
	conv models.ConversationResponse
}

func (s *stubConversationService) Create(ctx context.Context, userID uuid.UUID, title string) (*models.ConversationResponse, error) {
	conv := s.conv
	conv.UserID = userID
	return &conv, nil
}

func (s *stubConversationService) Get(ctx context.Context, userID, convID uuid.UUID) (*models.ConversationResponse, error) {
	if convID != s.conv.ID {
		return nil, services.ErrConversationNotFound
	}
	conv := s.conv
	return &conv, nil
}

func (s *stubConversationService) List(ctx context.Context, userID uuid.UUID) (*models.ListConversationsResponse, error) {
	return &models.ListConversationsResponse{Conversations: []models.ConversationResponse{s.conv}}, nil
}

func (s *stubConversationService) Rename(ctx context.Context, userID, convID uuid.UUID, title string) error {
	if convID != s.conv.ID {
		return services.ErrConversationNotFound
	}
	return nil
}

func (s *stubConversationService) SendMessage(ctx context.Context, userID, convID uuid.UUID, content string, sentAt time.Time) (*models.ConversationResponse, error) {
	if content == "" {
		return nil, services.ErrEmptyMessage
	}
	if convID != s.conv.ID {
		return nil, services.ErrConversationNotFound
	}
	conv := s.conv
	return &conv, nil
}

func testRouter(t *testing.T) (http.Handler, *stubConversationService, string) {
	t.Helper()

	userID := uuid.New()
	authSvc := &stubAuthService{userID: userID}
	convSvc := &stubConversationService{
		conv: models.ConversationResponse{ID: uuid.New(), Title: "chat", Messages: []models.Message{}},
	}

	router := NewRouter(
		testSecret,
		handlers.NewAuthHandler(authSvc),
		handlers.NewProfileHandler(&stubProfileService{}),
		handlers.NewConversationHandler(convSvc),
	)

	token, err := auth.NewAccessToken(userID, "u@e.c", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint test token: %v", err)
	}
	return router, convSvc, token
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := testRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, convSvc, _ := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/profile"},
		{http.MethodGet, "/v1/conversations"},
		{http.MethodPost, "/v1/conversations/" + convSvc.conv.ID.String() + "/messages"},
	}
	for _, p := range paths {
		rec := doRequest(t, router, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", p.method, p.path, rec.Code)
		}
	}

	rec := doRequest(t, router, http.MethodGet, "/v1/profile", "garbage-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed token, got %d", rec.Code)
	}
}

func TestLoginStatusMapping(t *testing.T) {
	router, _, _ := testRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", `{"email":"u@e.c","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad credentials, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/auth/login", "", `{"email":"u@e.c","password":"correct"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid login, got %d", rec.Code)
	}
	var resp models.AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected a non-empty access token")
	}
}

func TestConversationRoutes(t *testing.T) {
	router, convSvc, token := testRouter(t)
	known := convSvc.conv.ID.String()

	rec := doRequest(t, router, http.MethodGet, "/v1/conversations", token, "")
	if rec.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/conversations/"+known, token, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/conversations/"+uuid.NewString(), token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get unknown: expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/conversations/not-a-uuid", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("get malformed id: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/conversations/"+known+"/messages", token, `{"content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("send empty: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/conversations/"+known+"/messages", token, `{"content":"привет"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("send: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPatch, "/v1/conversations/"+known+"/title", token, `{"title":"new"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("rename: expected 200, got %d", rec.Code)
	}
}
