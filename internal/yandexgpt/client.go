// Package yandexgpt is a stateless wrapper around the Yandex Foundation
// Models completion endpoint. Every call authenticates with the caller's
// per-request API key; the client itself holds no credentials.
package yandexgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	chatTemperature = 0.6
	chatMaxTokens   = 2000
)

// Message is a role/text pair in the completion API wire format.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CompletionError is returned for any transport failure, non-2xx status,
// or malformed response body from the completion endpoint.
type CompletionError struct {
	Reason string
	Err    error
}

func (e *CompletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion request failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("completion request failed: %s", e.Reason)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Client calls the Yandex GPT completion endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	folderID   string
}

// NewClient creates a completion client. folderID identifies the Yandex
// Cloud folder that owns the model; it is embedded in the modelUri and,
// when non-empty, also sent as the x-folder-id header.
func NewClient(url, folderID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		url:        url,
		folderID:   folderID,
	}
}

func (c *Client) modelURI() string {
	return fmt.Sprintf("gpt://%s/yandexgpt-lite", c.folderID)
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type completionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []Message         `json:"messages"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Role string `json:"role"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

// Complete sends the full message history and returns the first
// alternative's text. Decoding parameters are fixed: non-streaming,
// temperature 0.6, 2000 max tokens.
func (c *Client) Complete(ctx context.Context, apiKey string, history []Message) (string, error) {
	return c.complete(ctx, apiKey, history, chatTemperature, chatMaxTokens)
}

func (c *Client) complete(ctx context.Context, apiKey string, messages []Message, temperature float64, maxTokens int) (string, error) {
	reqBody := completionRequest{
		ModelURI: c.modelURI(),
		CompletionOptions: completionOptions{
			Stream:      false,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		Messages: messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &CompletionError{Reason: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &CompletionError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+apiKey)
	if c.folderID != "" {
		req.Header.Set("x-folder-id", c.folderID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CompletionError{Reason: "transport error", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Include a bounded slice of the body; Yandex error payloads are small.
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &CompletionError{Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(errBody))}
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &CompletionError{Reason: "failed to decode response", Err: err}
	}

	if len(parsed.Result.Alternatives) == 0 || parsed.Result.Alternatives[0].Message.Text == "" {
		return "", &CompletionError{Reason: "response contains no alternatives"}
	}

	return parsed.Result.Alternatives[0].Message.Text, nil
}
