package telegram

import (
	"encoding/json"
	"fmt"
	"time"
)

// InlineButton is one button of an inline keyboard. Exactly one of URL or
// CallbackData is set.
type InlineButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboard is the reply_markup attached to a message.
type InlineKeyboard struct {
	Rows [][]InlineButton `json:"inline_keyboard"`
}

// SingleButton builds a one-button keyboard.
func SingleButton(b InlineButton) *InlineKeyboard {
	return &InlineKeyboard{Rows: [][]InlineButton{{b}}}
}

// Message is an outgoing HTML message.
type Message struct {
	ChatID       int64
	Text         string
	Keyboard     *InlineKeyboard
	AllowPreview bool
}

type sendMessageRequest struct {
	ChatID                int64           `json:"chat_id"`
	Text                  string          `json:"text"`
	ParseMode             string          `json:"parse_mode"`
	DisableWebPagePreview bool            `json:"disable_web_page_preview"`
	ReplyMarkup           *InlineKeyboard `json:"reply_markup,omitempty"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// Update is one event delivered by getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *InMessage     `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message or callback.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

// InMessage is an incoming message.
type InMessage struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text"`
}

// CallbackQuery is a press on an inline callback button.
type CallbackQuery struct {
	ID      string     `json:"id"`
	From    *User      `json:"from,omitempty"`
	Data    string     `json:"data"`
	Message *InMessage `json:"message,omitempty"`
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// APIError is a non-ok Bot API response.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("telegram %s: status %d: %s", e.Method, e.StatusCode, e.Description)
}

// Retryable reports whether the call may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
