// Package apiclient is the HTTP client for the chat server's JSON API.
// It implements chatstate.Backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"yagptchat/internal/chatstate"
	"yagptchat/internal/models"

	"github.com/google/uuid"
)

// APIError is a non-2xx response from the server, carrying the decoded
// error body when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the chat server. The bearer token is captured on
// Login and attached to every subsequent request.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.Mutex
	token string
}

var _ chatstate.Backend = (*Client)(nil)

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// do issues a JSON request and decodes the response into out (when out
// is non-nil). Non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errResp)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login authenticates and stores the returned bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (chatstate.Session, error) {
	var resp models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return chatstate.Session{}, err
	}
	c.setToken(resp.AccessToken)
	return chatstate.Session{
		UserID: resp.User.ID,
		Email:  resp.User.Email,
		Token:  resp.AccessToken,
	}, nil
}

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password, apiKey string) error {
	req := models.SignupRequest{Email: email, Password: password, YandexAPIKey: apiKey}
	return c.do(ctx, http.MethodPost, "/v1/auth/signup", req, nil)
}

func (c *Client) FetchProfile(ctx context.Context) (*models.ProfileResponse, error) {
	var resp models.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/v1/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateProfile(ctx context.Context, apiKey string) (*models.ProfileResponse, error) {
	var resp models.ProfileResponse
	req := models.UpdateProfileRequest{YandexAPIKey: apiKey}
	if err := c.do(ctx, http.MethodPut, "/v1/profile", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationResponse, error) {
	var resp models.ListConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*models.ConversationResponse, error) {
	var req models.CreateConversationRequest
	if title != "" {
		req.Title = &title
	}
	var resp models.ConversationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RenameConversation(ctx context.Context, id uuid.UUID, title string) (*models.ConversationResponse, error) {
	var resp models.ConversationResponse
	req := models.RenameConversationRequest{Title: title}
	if err := c.do(ctx, http.MethodPatch, "/v1/conversations/"+id.String()+"/title", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendMessage(ctx context.Context, id uuid.UUID, content string, sentAt time.Time) (*models.ConversationResponse, error) {
	req := models.SendMessageRequest{Content: content}
	if !sentAt.IsZero() {
		t := sentAt.UTC()
		req.SentAt = &t
	}
	var resp models.ConversationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/conversations/"+id.String()+"/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
