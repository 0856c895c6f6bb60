// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/jeranaias/mentor-tui/internal/attachments"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat server client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeConnection, Message: "chat server is unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsUnreachable checks if an error indicates the server could not be reached.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return errors.Is(err, ErrUnreachable)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat server client.
type ClientConfig struct {
	// BaseURL is the chat server base URL (default: http://127.0.0.1:5000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// MaxRetries bounds the turn-start retry loop (default: 3 attempts).
	// Only transport failures are retried; an HTTP error status is a
	// response, not a transport failure.
	MaxRetries int

	// RetryDelay between turn-start attempts (default: 1s)
	RetryDelay time.Duration

	// HTTPClient overrides the underlying client, used by tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    "http://127.0.0.1:5000",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the chat server. It is safe for
// concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClientWithConfig creates a client with custom configuration, filling in
// defaults for any zero values.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:5000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{config: config, httpClient: httpClient}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// TURN START
// =============================================================================

// TurnRequest carries everything the server needs to start a chat turn.
type TurnRequest struct {
	Message               string
	MessageID             string
	WorkspaceContent      string
	WorkspaceLanguage     string
	TransientSettings     string
	TransientSystemPrompt string
	Topics                string
	Attachments           []attachments.File
}

// StartTurn posts the multipart turn-start request. The start request is
// separate from the stream so arbitrary-size payloads and file uploads never
// hit GET URL limits; the response body is an acknowledgement only.
//
// Transport failures are retried up to MaxRetries attempts. Any received
// response, whatever its status, counts as the acknowledgement.
func (c *Client) StartTurn(ctx context.Context, req TurnRequest) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := []struct {
		name, value string
	}{
		{"message", req.Message},
		{"workspace_content", req.WorkspaceContent},
		{"workspace_language", req.WorkspaceLanguage},
		{"message_id", req.MessageID},
		{"transient_settings", req.TransientSettings},
		{"transient_system_prompt", req.TransientSystemPrompt},
		{"foundation_document_topics", req.Topics},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
		}
	}
	for _, f := range req.Attachments {
		part, err := w.CreateFormFile("attachments", f.Name)
		if err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
		}
	}
	if err := w.Close(); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return &ClientError{Type: ErrTypeTimeout, Message: "turn start aborted", Cause: ctx.Err()}
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/api/chat/start", bytes.NewReader(body.Bytes()))
		if err != nil {
			return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
		}
		httpReq.Header.Set("Content-Type", w.FormDataContentType())

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return &ClientError{Type: ErrTypeTimeout, Message: "turn start aborted", Cause: err}
			}
			lastErr = err
			continue
		}
		drainAndClose(resp.Body)
		return nil
	}

	return &ClientError{Type: ErrTypeConnection, Message: "turn start failed after retries", Cause: lastErr}
}

// =============================================================================
// CANCEL / DELETE
// =============================================================================

// Cancel issues the best-effort cancel request for the active turn. Callers
// tear down local state regardless of the outcome: cancellation is
// client-driven and does not wait for the server to confirm it stopped.
func (c *Client) Cancel(ctx context.Context) error {
	payload := []byte(`{"cancel": true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/api/chat/cancel", bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrUnreachable
	}
	drainAndClose(resp.Body)
	return nil
}

// DeleteMessage asks the server to delete one message by id.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) (DeleteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.config.BaseURL+"/api/message/delete/"+messageID, nil)
	if err != nil {
		return DeleteResponse{}, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResponse{}, ErrUnreachable
	}
	defer resp.Body.Close()

	var result DeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return DeleteResponse{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health performs a single liveness probe against the server.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/api/health", nil)
	if err != nil {
		return HealthStatus{}, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, ErrUnreachable
	}
	drainAndClose(resp.Body)

	return HealthStatus{
		Healthy:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:  resp.StatusCode,
		AuthExpired: resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
	}, nil
}

// =============================================================================
// LEGACY ONE-SHOT ENDPOINTS
// =============================================================================

// Chat sends a legacy single-shot chat request.
func (c *Client) Chat(ctx context.Context, req OneShotRequest) (OneShotResponse, error) {
	return c.postOneShot(ctx, "/api/chat", req)
}

// QA sends a legacy course Q&A request.
func (c *Client) QA(ctx context.Context, req OneShotRequest) (OneShotResponse, error) {
	return c.postOneShot(ctx, "/api/qa", req)
}

// Practice sends a legacy practice-tutor request.
func (c *Client) Practice(ctx context.Context, req OneShotRequest) (OneShotResponse, error) {
	return c.postOneShot(ctx, "/api/practice", req)
}

// Ask sends a request to the oldest single-page chat form endpoint.
func (c *Client) Ask(ctx context.Context, req OneShotRequest) (OneShotResponse, error) {
	return c.postOneShot(ctx, "/api", req)
}

func (c *Client) postOneShot(ctx context.Context, path string, req OneShotRequest) (OneShotResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OneShotResponse{}, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return OneShotResponse{}, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return OneShotResponse{}, ErrTimeout
		}
		return OneShotResponse{}, ErrUnreachable
	}
	defer resp.Body.Close()

	var result OneShotResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return OneShotResponse{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result, nil
}

// =============================================================================
// SESSION IDENTITY
// =============================================================================

const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID generates the opaque per-session identifier used by the legacy
// one-shot endpoints, matching their "session-" + 9 base-36 characters shape.
func NewSessionID() string {
	b := make([]byte, 9)
	for i := range b {
		b[i] = sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))]
	}
	return "session-" + string(b)
}

// Helper to drain response body so connections are reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
