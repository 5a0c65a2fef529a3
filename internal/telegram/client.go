// Package telegram is a small Bot API client: sendMessage, getUpdates and
// answerCallbackQuery over JSON, with retry on rate limiting and server or
// network errors. format.go renders items as HTML message cards.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client defaults.
const (
	DefaultBaseURL     = "https://api.telegram.org"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
	maxResponseBytes   = 4 << 20
)

// ErrNotConfigured is returned when no bot token is set.
var ErrNotConfigured = errors.New("telegram token is not configured")

// Config tunes the client.
type Config struct {
	Token       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// Client talks to the Bot API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// New builds a client. The token is required.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger.Named("telegram"),
		sleep:  sleepContext,
	}, nil
}

// SendMessage posts an HTML message.
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	req := sendMessageRequest{
		ChatID:                msg.ChatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: !msg.AllowPreview,
		ReplyMarkup:           msg.Keyboard,
	}
	return c.call(ctx, "sendMessage", req, nil, 0)
}

// GetUpdates long-polls for updates after offset, waiting up to wait.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(wait / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates, wait); err != nil {
		return nil, err
	}
	return updates, nil
}

// AnswerCallbackQuery acknowledges a button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: id, Text: text}, nil, 0)
}

func (c *Client) call(ctx context.Context, method string, payload, out any, extra time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		lastErr = c.do(ctx, method, body, out, extra)
		if lastErr == nil {
			return nil
		}
		wait, retry := c.retryDelay(ctx, lastErr, attempt)
		if !retry || attempt == c.cfg.MaxAttempts {
			break
		}
		c.logger.Warn("telegram call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	backoff := c.cfg.Backoff * time.Duration(1<<(attempt-1))
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if !apiErr.Retryable() {
			return 0, false
		}
		if apiErr.RetryAfter > 0 {
			return apiErr.RetryAfter, true
		}
		return backoff, true
	}
	var decodeErr *json.SyntaxError
	if errors.As(err, &decodeErr) {
		return 0, false
	}
	return backoff, true
}

func (c *Client) do(ctx context.Context, method string, body []byte, out any, extra time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout+extra)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !env.OK || resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Description: env.Description}
		if env.ErrorCode != 0 {
			apiErr.StatusCode = env.ErrorCode
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
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
