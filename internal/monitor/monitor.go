// Package monitor pushes newly seen items to subscribers on a schedule.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/ulytau-insight/internal/metrics"
	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/telegram"
)

// Defaults.
const (
	DefaultFirstDelay   = 10 * time.Second
	DefaultInterval     = 15 * time.Minute
	DefaultFetchLimit   = 50
	DefaultMaxPerCheck  = 3
	DefaultSendInterval = 100 * time.Millisecond
)

// Messenger delivers one message.
type Messenger interface {
	SendMessage(ctx context.Context, msg telegram.Message) error
}

// Config tunes the schedule and pacing.
type Config struct {
	FirstDelay   time.Duration
	Interval     time.Duration
	FetchLimit   int
	MaxPerCheck  int
	SendInterval time.Duration
	AllowPreview bool
}

func (c Config) withDefaults() Config {
	if c.FirstDelay <= 0 {
		c.FirstDelay = DefaultFirstDelay
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = DefaultFetchLimit
	}
	if c.MaxPerCheck <= 0 {
		c.MaxPerCheck = DefaultMaxPerCheck
	}
	if c.SendInterval <= 0 {
		c.SendInterval = DefaultSendInterval
	}
	return c
}

// Monitor checks for unseen items and fans them out.
type Monitor struct {
	cfg       Config
	provider  news.Provider
	store     news.SubscriberStore
	messenger Messenger
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New builds a Monitor.
func New(cfg Config, provider news.Provider, store news.SubscriberStore, messenger Messenger, logger *zap.Logger) *Monitor {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		messenger: messenger,
		limiter:   rate.NewLimiter(rate.Every(cfg.SendInterval), 1),
		logger:    logger.Named("monitor"),
	}
}

// Start runs checks until ctx is done: once after FirstDelay, then every
// Interval.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("monitor started",
		zap.Duration("first_delay", m.cfg.FirstDelay),
		zap.Duration("interval", m.cfg.Interval),
	)
	timer := time.NewTimer(m.cfg.FirstDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-timer.C:
			if _, err := m.Check(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("monitor check failed", zap.Error(err))
			}
			timer.Reset(m.cfg.Interval)
		}
	}
}

// Check sends at most MaxPerCheck unseen items, oldest first, to every
// subscriber and returns how many items went out.
func (m *Monitor) Check(ctx context.Context) (int, error) {
	items, err := m.provider.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest items: %w", err)
	}
	items = items[:min(len(items), m.cfg.FetchLimit)]
	if len(items) == 0 {
		return 0, nil
	}
	subs, err := m.store.Subscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	sent := 0
	for i := len(items) - 1; i >= 0 && sent < m.cfg.MaxPerCheck; i-- {
		item := items[i]
		if item.Link == "" {
			continue
		}
		seen, err := m.store.IsSeen(ctx, item.Link)
		if err != nil {
			return sent, fmt.Errorf("check seen link: %w", err)
		}
		if seen {
			continue
		}
		if err := m.broadcast(ctx, subs, item); err != nil {
			return sent, err
		}
		if _, err := m.store.MarkSeen(ctx, item.Link); err != nil {
			return sent, fmt.Errorf("mark seen link: %w", err)
		}
		sent++
	}
	if sent > 0 {
		m.logger.Info("notifications sent", zap.Int("items", sent), zap.Int("subscribers", len(subs)))
	}
	return sent, nil
}

// broadcast only fails when ctx ends; per-chat send errors are logged.
func (m *Monitor) broadcast(ctx context.Context, subs []int64, item news.Item) error {
	text, kb := telegram.FormatItem(item)
	for _, chatID := range subs {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pace send: %w", err)
		}
		err := m.messenger.SendMessage(ctx, telegram.Message{
			ChatID:       chatID,
			Text:         text,
			Keyboard:     kb,
			AllowPreview: m.cfg.AllowPreview,
		})
		if err != nil {
			metrics.ObserveNotification("failed")
			m.logger.Warn("notify subscriber", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		metrics.ObserveNotification("sent")
	}
	return nil
}
