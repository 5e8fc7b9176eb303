// ABOUTME: HTTP client for the recording-bot provider API
// ABOUTME: Handles bot creation, status fetch, deletion, and chat messages

package provider

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
)

// ErrNotFound is returned when the provider does not know the bot.
var ErrNotFound = errors.New("bot not found at provider")

// Client talks to the recording-bot provider over HTTPS with a static
// API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a provider client for the given region base URL and key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "provider"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// CreateBot requests a new recording bot and returns the provider's record,
// including the assigned bot ID.
func (c *Client) CreateBot(ctx context.Context, req *CreateBotRequest) (*Bot, error) {
	var bot Bot
	if err := c.do(ctx, http.MethodPost, "/bot", req, &bot); err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}
	c.logger.Debug("bot created", "bot_id", bot.ID, "meeting_url", req.MeetingURL)
	return &bot, nil
}

// GetBot fetches the current remote state of a bot.
func (c *Client) GetBot(ctx context.Context, id string) (*Bot, error) {
	var bot Bot
	if err := c.do(ctx, http.MethodGet, "/bot/"+id, nil, &bot); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching bot %s: %w", id, err)
	}
	return &bot, nil
}

// DeleteBot cancels a bot. A provider 404 surfaces as ErrNotFound so callers
// can treat an already-removed bot as success.
func (c *Client) DeleteBot(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/bot/"+id, nil, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting bot %s: %w", id, err)
	}
	return nil
}

// SendChatMessage posts a message to everyone in the bot's meeting.
func (c *Client) SendChatMessage(ctx context.Context, id, message string) error {
	req := &ChatMessageRequest{Message: message, To: "everyone"}
	if err := c.do(ctx, http.MethodPost, "/bot/"+id+"/send_chat_message/", req, nil); err != nil {
		return fmt.Errorf("sending chat message to bot %s: %w", id, err)
	}
	return nil
}
