package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Token: "TOKEN", BaseURL: srv.URL, Backoff: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendMessagePayload(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := c.SendMessage(context.Background(), Message{
		ChatID:   42,
		Text:     "<b>hi</b>",
		Keyboard: SingleButton(InlineButton{Text: "go", URL: "https://a"}),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(42), got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, true, got["disable_web_page_preview"])
	markup := got["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	require.Len(t, rows, 1)
}

func TestGetUpdatesDecodesResult(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req getUpdatesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(10), req.Offset)
		assert.Equal(t, 1, req.Timeout)
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":5},"from":{"id":5,"first_name":"Айгерим"},"text":"/start"}},
			{"update_id":11,"callback_query":{"id":"cb","data":"load_more","message":{"message_id":2,"chat":{"id":5}}}}
		]}`))
	})

	updates, err := c.GetUpdates(context.Background(), 10, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(5), updates[0].Message.Chat.ID)
	assert.Equal(t, "Айгерим", updates[0].Message.From.FirstName)
	assert.Equal(t, "load_more", updates[1].CallbackQuery.Data)
	assert.Equal(t, int64(5), updates[1].CallbackQuery.Message.Chat.ID)
}

func TestRetriesServerErrorsWithBackoff(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "cb", ""))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestHonoursRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	require.NoError(t, c.SendMessage(context.Background(), Message{ChatID: 1, Text: "x"}))
	assert.Equal(t, []time.Duration{3 * time.Second}, *slept)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	err := c.SendMessage(context.Background(), Message{ChatID: 1, Text: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "blocked")
	assert.False(t, apiErr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.SendMessage(context.Background(), Message{ChatID: 1, Text: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load())
}

func TestNetworkErrorHidesToken(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Token: "SECRET", BaseURL: "http://127.0.0.1:1", MaxAttempts: 1}, nil)
	require.NoError(t, err)
	err = c.SendMessage(context.Background(), Message{ChatID: 1, Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}
