// Package telegram sends alert messages and photos through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram bot token or chat ID not configured")

// Config holds the bot settings.
type Config struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// Validate checks that credentials are present.
func (c Config) Validate() error {
	if c.BotToken == "" || c.ChatID == "" {
		return ErrNotConfigured
	}
	return nil
}

// APIResponse is the envelope returned by every Bot API method.
type APIResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Client talks to the Bot API for a single chat.
type Client struct {
	http   *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

// NewClient creates a Client. Requests are not retried; the caller's
// cooldown decides when the next attempt happens.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		logger: logger.Named("telegram"),
	}, nil
}

// SendMessage posts a plain text message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"text":    text,
		}).
		Post(c.methodPath("sendMessage"))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return c.handleResponse("sendMessage", resp)
}

// SendPhoto posts a JPEG photo with a caption.
func (c *Client) SendPhoto(ctx context.Context, photo []byte, caption string) error {
	if len(photo) == 0 {
		return errors.New("send photo: empty image")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"chat_id": c.chatID,
			"caption": caption,
		}).
		SetFileReader("photo", "evidence.jpg", bytes.NewReader(photo)).
		Post(c.methodPath("sendPhoto"))
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}

	return c.handleResponse("sendPhoto", resp)
}

// GetMe checks the token against the API and returns the bot description.
func (c *Client) GetMe(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.methodPath("getMe"))
	if err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}

	apiResp, err := decode(resp)
	if err != nil {
		return nil, fmt.Errorf("getMe: %w", err)
	}
	return apiResp.Result, nil
}

func (c *Client) methodPath(method string) string {
	return fmt.Sprintf("/bot%s/%s", c.token, method)
}

// handleResponse turns a non-2xx status or ok=false envelope into an error.
func (c *Client) handleResponse(method string, resp *resty.Response) error {
	if _, err := decode(resp); err != nil {
		c.logger.Debug("telegram request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode()),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func decode(resp *resty.Response) (*APIResponse, error) {
	var apiResp APIResponse
	jsonErr := json.Unmarshal(resp.Body(), &apiResp)

	if !resp.IsSuccess() {
		if jsonErr == nil && apiResp.Description != "" {
			return nil, fmt.Errorf("telegram API error %d: %s", resp.StatusCode(), apiResp.Description)
		}
		return nil, fmt.Errorf("telegram API returned status %d", resp.StatusCode())
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", jsonErr)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	return &apiResp, nil
}
