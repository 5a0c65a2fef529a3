// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ulytau-insight/internal/adapter"
	"github.com/JakeFAU/ulytau-insight/internal/aggregator"
	"github.com/JakeFAU/ulytau-insight/internal/api"
	"github.com/JakeFAU/ulytau-insight/internal/bot"
	"github.com/JakeFAU/ulytau-insight/internal/breaker"
	"github.com/JakeFAU/ulytau-insight/internal/classify"
	"github.com/JakeFAU/ulytau-insight/internal/clock/system"
	"github.com/JakeFAU/ulytau-insight/internal/config"
	collyfetcher "github.com/JakeFAU/ulytau-insight/internal/fetcher/colly"
	idgen "github.com/JakeFAU/ulytau-insight/internal/id/uuid"
	"github.com/JakeFAU/ulytau-insight/internal/metrics"
	"github.com/JakeFAU/ulytau-insight/internal/monitor"
	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/orchestrator"
	"github.com/JakeFAU/ulytau-insight/internal/pipeline"
	"github.com/JakeFAU/ulytau-insight/internal/policy/ratelimit"
	"github.com/JakeFAU/ulytau-insight/internal/storage/local"
	"github.com/JakeFAU/ulytau-insight/internal/storage/memory"
	"github.com/JakeFAU/ulytau-insight/internal/storage/postgres"
	"github.com/JakeFAU/ulytau-insight/internal/telegram"
)

// Store is a subscriber store that owns resources.
type Store interface {
	news.SubscriberStore
	Close() error
}

// Option overrides a collaborator New would otherwise build from config.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	clock   news.Clock
	getter  news.Getter
	store   Store
	catalog *config.Catalog
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock sets the clock used for breakers, freshness and scoring.
func WithClock(c news.Clock) Option { return func(o *options) { o.clock = c } }

// WithGetter replaces the Colly getter.
func WithGetter(g news.Getter) Option { return func(o *options) { o.getter = g } }

// WithStore replaces the configured subscriber store.
func WithStore(s Store) Option { return func(o *options) { o.store = s } }

// WithCatalog replaces the catalog named by sources.path.
func WithCatalog(c config.Catalog) Option { return func(o *options) { o.catalog = &c } }

// App holds all the shared, long-lived services for the application.
// It is built once at startup by New and torn down by Close.
type App struct {
	cfg     config.Config
	catalog config.Catalog
	logger  *zap.Logger
	store   Store
	service *aggregator.Service
	server  *api.Server
	client  *telegram.Client
	bot     *bot.Bot
	monitor *monitor.Monitor
}

// New creates and initializes an App from cfg. It is designed to fail fast
// if any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	l := o.logger
	if l == nil {
		l = zap.NewNop()
	}
	clk := o.clock
	if clk == nil {
		clk = system.New()
	}
	metrics.Init()

	catalog, err := resolveCatalog(cfg, o.catalog)
	if err != nil {
		return nil, err
	}
	l.Info("catalog loaded", zap.Int("sources", len(catalog.Sources)))

	store := o.store
	if store == nil {
		store, err = openStore(ctx, cfg.Store, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
	}

	getter := o.getter
	if getter == nil {
		getter = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Fetch.UserAgent,
			RespectRobots: cfg.Fetch.RespectRobots,
			MaxBodySize:   cfg.Fetch.MaxBodyBytes,
		}, ratelimit.New(ratelimit.Config{
			PerHostRPS:   cfg.Fetch.PerHostRPS,
			PerHostBurst: cfg.Fetch.PerHostBurst,
		}))
	}

	adapters := adapter.NewSet(getter, adapter.Config{
		FeedTimeout:    seconds(cfg.Fetch.FeedTimeoutSeconds),
		ListingTimeout: seconds(cfg.Fetch.ListingTimeoutSeconds),
		ChannelTimeout: seconds(cfg.Fetch.ChannelTimeoutSeconds),
		Listing: adapter.ListingConfig{
			MinTextLen:  cfg.Pipeline.ListingMinTextLen,
			MaxEntries:  cfg.Pipeline.ListingMaxEntries,
			PathFilters: catalog.PathFilters,
		},
	})

	urls := make([]string, 0, len(catalog.Sources))
	for _, src := range catalog.Sources {
		urls = append(urls, src.URL)
	}
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold:     cfg.Breaker.FailureThreshold,
		RecoveryTimeout:      cfg.Breaker.RecoveryTimeout(),
		ResetOnClosedSuccess: cfg.Breaker.ResetOnClosedSuccess,
		SingleProbe:          cfg.Breaker.SingleProbe,
	}, clk, urls...)

	orch := orchestrator.New(adapters, breakers, clk, idgen.New(), l, orchestrator.Config{
		Concurrency: cfg.Fetch.Concurrency,
		Deadline:    cfg.Fetch.Deadline(),
	})
	classifier := classify.New(catalog.Keywords,
		classify.WithFreshWindow(hours(cfg.Pipeline.ScoreFreshHours)))
	ranker := pipeline.New(classifier, pipeline.Config{
		FreshnessWindow: cfg.Pipeline.FreshnessWindow(),
		SummaryLimit:    cfg.Pipeline.SummaryLimit,
	}, l)
	service := aggregator.New(orch, ranker, catalog.Sources, clk, l)

	a := &App{
		cfg:     cfg,
		catalog: catalog,
		logger:  l,
		store:   store,
		service: service,
		server:  api.NewServer(service, cfg, l),
	}

	if cfg.Telegram.Enabled {
		if err := a.initTelegram(clk); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	l.Info("application services initialized")
	return a, nil
}

func (a *App) initTelegram(clk news.Clock) error {
	tg := a.cfg.Telegram
	client, err := telegram.New(telegram.Config{
		Token:       tg.Token,
		BaseURL:     tg.BaseURL,
		MaxAttempts: tg.MaxAttempts,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram client: %w", err)
	}
	a.client = client
	a.bot = bot.New(bot.Config{
		Service:      config.ServiceName,
		Version:      config.ServiceVersion,
		PollTimeout:  tg.PollTimeout(),
		AllowPreview: tg.AllowPreview,
	}, bot.Deps{
		Messenger: client,
		Poller:    client,
		Provider:  a.service,
		Status:    a.service,
		Store:     a.store,
		Clock:     clk,
		Logger:    a.logger,
	})
	if tg.Notify.Enabled {
		a.monitor = monitor.New(monitor.Config{
			FirstDelay:   tg.Notify.FirstDelay(),
			Interval:     tg.Notify.Interval(),
			FetchLimit:   tg.Notify.FetchLimit,
			MaxPerCheck:  tg.Notify.MaxPerCheck,
			SendInterval: tg.Notify.SendInterval(),
			AllowPreview: tg.AllowPreview,
		}, a.service, a.store, client, a.logger)
	}
	return nil
}

func resolveCatalog(cfg config.Config, override *config.Catalog) (config.Catalog, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return config.Catalog{}, fmt.Errorf("invalid catalog: %w", err)
		}
		return *override, nil
	}
	c, err := config.LoadCatalog(cfg.Sources.Path)
	if err != nil {
		return config.Catalog{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, l *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "memory":
		l.Info("using in-memory subscriber store; state is lost on restart")
		return memory.New(cfg.SeenLimit), nil
	case "file":
		l.Info("using file subscriber store", zap.String("path", cfg.File.Path))
		s, err := local.New(local.Config{Path: cfg.File.Path, SeenLimit: cfg.SeenLimit})
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return s, nil
	case "postgres":
		l.Info("connecting to PostgreSQL")
		s, err := postgres.New(ctx, postgres.Config{
			DSN:       cfg.Postgres.DSN,
			MaxConns:  cfg.Postgres.MaxConns,
			MinConns:  cfg.Postgres.MinConns,
			SeenLimit: cfg.SeenLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Provider)
	}
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Service returns the aggregator behind every surface.
func (a *App) Service() *aggregator.Service { return a.service }

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Catalog returns the loaded source catalog.
func (a *App) Catalog() config.Catalog { return a.catalog }

// Store returns the subscriber store.
func (a *App) Store() Store { return a.store }

// Bot returns the Telegram bot, or nil when Telegram is disabled.
func (a *App) Bot() *bot.Bot { return a.bot }

// Monitor returns the notification monitor, or nil when disabled.
func (a *App) Monitor() *monitor.Monitor { return a.monitor }

// Serve runs the HTTP server, the bot and the monitor until ctx is done or
// one of them fails.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: seconds(10),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	if a.bot != nil {
		g.Go(func() error { return a.bot.Run(gctx) })
	}
	if a.monitor != nil {
		g.Go(func() error {
			a.monitor.Start(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	// Sync fails on stdout/stderr sinks on some platforms; ignore it.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }
