// Package openai implements llm.Completer against the OpenAI HTTP API.
//
// When an assistant ID is configured the client first tries the stateful
// thread/run flow and falls back to chat completions if that fails in any
// way. Without an assistant ID only chat completions are used.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/logger"
	"github.com/lillylive/lilly/pkg/utils"
)

const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4.1"
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 800
	DefaultPollInterval    = time.Second
	DefaultMaxPollAttempts = 30

	assistantsBeta = "assistants=v2"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("openai: API key not configured")

// maxErrorBody caps the provider body quoted in errors.
const maxErrorBody = 512

// UpstreamError is a non-2xx response from the provider.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai: upstream returned %d: %s", e.StatusCode, utils.Truncate(e.Body, maxErrorBody))
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	APIKey      string
	AssistantID string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int

	PollInterval    time.Duration
	MaxPollAttempts int

	HTTPClient *http.Client
	Logger     *slog.Logger
	Sleep      SleepFunc
}

// Client talks to the OpenAI API.
type Client struct {
	apiKey      string
	assistantID string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int

	pollInterval    time.Duration
	maxPollAttempts int

	http   *http.Client
	logger *slog.Logger
	sleep  SleepFunc
}

var _ llm.Completer = (*Client)(nil)

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:          opts.APIKey,
		assistantID:     opts.AssistantID,
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		model:           opts.Model,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		http:            opts.HTTPClient,
		logger:          opts.Logger,
		sleep:           opts.Sleep,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.temperature == 0 {
		c.temperature = DefaultTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxPollAttempts <= 0 {
		c.maxPollAttempts = DefaultMaxPollAttempts
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c, nil
}

// Complete returns the next assistant reply for conv.
func (c *Client) Complete(ctx context.Context, conv llm.Conversation) (*llm.CompletionReply, error) {
	if c.assistantID != "" {
		reply, err := c.completeWithAssistant(ctx, conv)
		if err == nil {
			return reply, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("assistant strategy failed, falling back to chat completions",
			"assistant_id", c.assistantID,
			"error", err,
		)
	}
	return c.completeWithChat(ctx, conv)
}

// do sends a JSON request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any, beta bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if beta {
		req.Header.Set("OpenAI-Beta", assistantsBeta)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
