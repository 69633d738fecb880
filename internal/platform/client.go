// Package platform is the HTTP client for the uContents platform API.
//
// Every endpoint answers with the same envelope:
//
//	{ "success": bool, "data": {...}, "message": "..." }
//
// The client unwraps the envelope and converts transport failures and
// success=false answers into typed errors at the call site; raw HTTP
// details never propagate to handlers.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// API is the platform surface the console depends on. Kept as an
// interface so session and connect flows can be tested against a fake.
type API interface {
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
	CurrentUser(ctx context.Context, token string) (User, error)
	Logout(ctx context.Context, token string) error
	ExchangeSocial(ctx context.Context, token string, req SocialExchange) (SocialExchangeResult, error)
	ConsoleSettings(ctx context.Context) (Settings, error)
	UnreadNotifications(ctx context.Context, token string) (NotificationSummary, error)
}

var _ API = (*Client)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var wrapped struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &wrapped); err != nil {
		return User{}, err
	}
	if wrapped.User.ID == "" {
		return User{}, &APIError{Status: http.StatusOK, Message: "malformed user payload"}
	}
	return wrapped.User, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (c *Client) ExchangeSocial(ctx context.Context, token string, req SocialExchange) (SocialExchangeResult, error) {
	var out SocialExchangeResult
	path := fmt.Sprintf("/social/%s/exchange", req.Provider)
	if err := c.do(ctx, http.MethodPost, path, token, req, &out); err != nil {
		return SocialExchangeResult{}, err
	}
	return out, nil
}

func (c *Client) ConsoleSettings(ctx context.Context) (Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodGet, "/settings/console", "", nil, &out); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func (c *Client) UnreadNotifications(ctx context.Context, token string) (NotificationSummary, error) {
	var out NotificationSummary
	if err := c.do(ctx, http.MethodGet, "/notifications/unread", token, nil, &out); err != nil {
		return NotificationSummary{}, err
	}
	out.FetchedAt = time.Now().UTC()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("platform: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return &APIError{Status: resp.StatusCode, Message: "empty response payload"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response payload"}
	}
	return nil
}
