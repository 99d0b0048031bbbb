// Package client talks to a running lilly server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/storage"
	"github.com/lillylive/lilly/pkg/utils"
)

// DefaultTimeout bounds a single request. The server may poll upstream for
// up to 30s before falling back, so chat needs headroom.
const DefaultTimeout = 2 * time.Minute

// StatusError is returned for non-2xx responses. Message is the server's
// error text when the body carried one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client is a lilly API client.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL (scheme + host + port).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends the full conversation and returns the reply text. A 200 with
// a missing reply returns "".
func (c *Client) Chat(ctx context.Context, conv llm.Conversation) (string, error) {
	var resp llm.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", "", llm.ChatRequest{Messages: conv}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// LoginResponse mirrors the server's login body.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	resp := &LoginResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/login", "", body, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Signup creates an account and returns the stored record.
func (c *Client) Signup(ctx context.Context, nickname, email, password string) (*storage.User, error) {
	body := map[string]string{"nickname": nickname, "email": email, "password": password}
	user := &storage.User{}
	if err := c.do(ctx, http.MethodPost, "/api/signup", "", body, user); err != nil {
		return nil, err
	}
	return user, nil
}

// MeResponse mirrors the server's verified session body.
type MeResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Me asks the server to verify token.
func (c *Client) Me(ctx context.Context, token string) (*MeResponse, error) {
	resp := &MeResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/me", token, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb llm.ErrorResponse
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Error
		if msg == "" && !json.Valid(raw) {
			msg = utils.Truncate(strings.TrimSpace(string(raw)), 200)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
