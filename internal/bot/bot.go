// Package bot answers Telegram commands: subscriptions, the latest items in
// pages, a weekly digest and a service status report.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/telegram"
)

// Defaults.
const (
	DefaultPageSize    = 10
	DefaultLatestLimit = 40
	DefaultPollTimeout = 30 * time.Second
	pollErrorPause     = 5 * time.Second
)

// Messenger sends messages and acknowledges button presses.
type Messenger interface {
	SendMessage(ctx context.Context, msg telegram.Message) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
}

// Poller long-polls for updates.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]telegram.Update, error)
}

// StatusReporter describes source health for /status.
type StatusReporter interface {
	Sources() []news.SourceStatus
	OpenBreakers() int
}

// Config tunes the bot.
type Config struct {
	Service      string
	Version      string
	PageSize     int
	LatestLimit  int
	PollTimeout  time.Duration
	AllowPreview bool
}

// Deps are the bot's collaborators.
type Deps struct {
	Messenger Messenger
	Poller    Poller
	Provider  news.Provider
	Status    StatusReporter
	Store     news.SubscriberStore
	Clock     news.Clock
	Logger    *zap.Logger
}

// Bot dispatches updates to command handlers.
type Bot struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[int64][]news.Item
}

// New builds a bot.
func New(cfg Config, deps Deps) *Bot {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = DefaultLatestLimit
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		cfg:      cfg,
		deps:     deps,
		log:      logger.Named("bot"),
		sessions: make(map[int64][]news.Item),
	}
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.deps.Poller == nil {
		return fmt.Errorf("bot poller is required")
	}
	b.log.Info("bot polling started")
	var offset int64
	for {
		updates, err := b.deps.Poller.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if ctx.Err() != nil {
			b.log.Info("bot polling stopped")
			return nil
		}
		if err != nil {
			b.log.Warn("get updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollErrorPause):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate routes one update.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.InMessage) {
	cmd := command(m.Text)
	if cmd == "" {
		return
	}
	chatID := m.Chat.ID
	b.log.Debug("command", zap.String("command", cmd), zap.Int64("chat_id", chatID))

	switch cmd {
	case "start":
		b.start(ctx, chatID)
	case "subscribe":
		b.subscribe(ctx, chatID)
	case "unsubscribe":
		b.unsubscribe(ctx, chatID)
	case "help":
		b.send(ctx, chatID, helpText, nil)
	case "latest":
		name := ""
		if m.From != nil {
			name = m.From.FirstName
		}
		b.latest(ctx, chatID, name)
	case "week":
		b.week(ctx, chatID)
	case "status":
		b.status(ctx, chatID)
	}
}

// command extracts "latest" from "/latest@UlytauBot arg".
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

func (b *Bot) start(ctx context.Context, chatID int64) {
	if _, err := b.deps.Store.AddSubscriber(ctx, chatID); err != nil {
		b.log.Error("add subscriber", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.send(ctx, chatID, welcomeText, nil)
}

func (b *Bot) subscribe(ctx context.Context, chatID int64) {
	added, err := b.deps.Store.AddSubscriber(ctx, chatID)
	switch {
	case err != nil:
		b.log.Error("add subscriber", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(ctx, chatID, "⚠️ Не удалось оформить подписку, попробуйте позже.", nil)
	case added:
		b.send(ctx, chatID, "✅ Вы подписаны на уведомления о свежих новостях!", nil)
	default:
		b.send(ctx, chatID, "ℹ️ Вы уже подписаны.", nil)
	}
}

func (b *Bot) unsubscribe(ctx context.Context, chatID int64) {
	removed, err := b.deps.Store.RemoveSubscriber(ctx, chatID)
	switch {
	case err != nil:
		b.log.Error("remove subscriber", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(ctx, chatID, "⚠️ Не удалось отключить уведомления, попробуйте позже.", nil)
	case removed:
		b.send(ctx, chatID, "🔕 Уведомления отключены. Вы всегда можете подписаться снова через /subscribe.", nil)
	default:
		b.send(ctx, chatID, "ℹ️ Вы не были подписаны.", nil)
	}
}

func (b *Bot) latest(ctx context.Context, chatID int64, name string) {
	greeting := "🔍 Ищу свежие новости..."
	if name != "" {
		greeting = fmt.Sprintf("🔍 %s, ищу свежие новости...", html.EscapeString(name))
	}
	b.send(ctx, chatID, greeting, nil)

	items, err := b.deps.Provider.Latest(ctx)
	if err != nil {
		b.log.Error("latest items", zap.Error(err))
		b.send(ctx, chatID, "⚠️ Ошибка при получении новостей.", nil)
		return
	}
	if len(items) == 0 {
		b.send(ctx, chatID, "📭 Новостей пока нет.", nil)
		return
	}
	items = items[:min(len(items), b.cfg.LatestLimit)]
	page, rest := b.split(items)
	b.setSession(chatID, rest)
	b.sendItems(ctx, chatID, page)
	if len(rest) > 0 {
		b.send(ctx, chatID, "Хотите прочитать ещё?", telegram.LoadMoreKeyboard(len(rest)))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	if err := b.deps.Messenger.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		b.log.Warn("answer callback", zap.Error(err))
	}
	if q.Data != telegram.LoadMoreData || q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	b.mu.Lock()
	remaining := b.sessions[chatID]
	page, rest := b.split(remaining)
	if len(rest) == 0 {
		delete(b.sessions, chatID)
	} else {
		b.sessions[chatID] = rest
	}
	b.mu.Unlock()

	if len(page) == 0 {
		b.send(ctx, chatID, "Больше новостей нет.", nil)
		return
	}
	b.sendItems(ctx, chatID, page)
	if len(rest) > 0 {
		b.send(ctx, chatID, "Продолжить чтение?", telegram.LoadMoreKeyboard(len(rest)))
		return
	}
	b.send(ctx, chatID, "✅ Вы просмотрели все найденные новости.", nil)
}

func (b *Bot) week(ctx context.Context, chatID int64) {
	b.send(ctx, chatID, "📅 Готовлю дайджест за неделю...", nil)
	items, err := b.deps.Provider.Latest(ctx)
	if err != nil {
		b.log.Error("week digest", zap.Error(err))
		b.send(ctx, chatID, "⚠️ Ошибка при создании дайджеста.", nil)
		return
	}
	if len(items) == 0 {
		b.send(ctx, chatID, "📭 За эту неделю новостей не найдено.", nil)
		return
	}
	b.send(ctx, chatID, telegram.FormatDigest(BuildDigest(items, b.deps.Clock.Now())), nil)
}

func (b *Bot) status(ctx context.Context, chatID int64) {
	subs, err := b.deps.Store.Subscribers(ctx)
	if err != nil {
		b.log.Error("count subscribers", zap.Error(err))
	}
	var okCount, total, open int
	if b.deps.Status != nil {
		for _, st := range b.deps.Status.Sources() {
			total++
			if st.OK {
				okCount++
			}
		}
		open = b.deps.Status.OpenBreakers()
	}
	text := fmt.Sprintf(
		"✅ <b>API STATUS</b>\nService: <code>%s</code>\nVersion: <code>%s</code>\nПодписчиков: <code>%d</code>\nИсточники: <code>%d/%d</code>\nОткрытых предохранителей: <code>%d</code>",
		html.EscapeString(b.cfg.Service), html.EscapeString(b.cfg.Version), len(subs), okCount, total, open,
	)
	b.send(ctx, chatID, text, nil)
}

func (b *Bot) split(items []news.Item) ([]news.Item, []news.Item) {
	n := min(len(items), b.cfg.PageSize)
	return items[:n], items[n:]
}

func (b *Bot) setSession(chatID int64, rest []news.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(rest) == 0 {
		delete(b.sessions, chatID)
		return
	}
	b.sessions[chatID] = rest
}

func (b *Bot) sendItems(ctx context.Context, chatID int64, items []news.Item) {
	for _, item := range items {
		text, kb := telegram.FormatItem(item)
		b.send(ctx, chatID, text, kb)
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboard) {
	err := b.deps.Messenger.SendMessage(ctx, telegram.Message{
		ChatID:       chatID,
		Text:         text,
		Keyboard:     kb,
		AllowPreview: b.cfg.AllowPreview,
	})
	if err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
