package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ulytau-insight/internal/app"
	"github.com/JakeFAU/ulytau-insight/internal/classify"
	"github.com/JakeFAU/ulytau-insight/internal/clock/fake"
	"github.com/JakeFAU/ulytau-insight/internal/config"
	"github.com/JakeFAU/ulytau-insight/internal/logging"
	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/storage/memory"
)

const stubFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Улытау: первая новость</title><link>https://u.kz/1</link><pubDate>Tue, 04 Mar 2025 10:00:00 +0000</pubDate></item>
<item><title>Жезказган: вторая новость</title><link>https://u.kz/2</link><pubDate>Tue, 04 Mar 2025 09:00:00 +0000</pubDate></item>
</channel></rss>`

type stubGetter struct{}

func (stubGetter) Get(context.Context, string, time.Duration) ([]byte, error) {
	return []byte(stubFeed), nil
}

func useFakes(t *testing.T) {
	t.Helper()
	prevApp, prevLogger := newApp, newLogger
	t.Cleanup(func() { newApp, newLogger = prevApp, prevLogger })

	newLogger = func(logging.Options) (*zap.Logger, error) { return zap.NewNop(), nil }
	newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
		return app.New(ctx, cfg,
			app.WithLogger(logger),
			app.WithGetter(stubGetter{}),
			app.WithStore(memory.New(0)),
			app.WithClock(fake.New(time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC))),
			app.WithCatalog(config.Catalog{
				Sources:  []news.Source{{Name: "Stub", URL: "https://u.kz/feed", Kind: news.KindFeed}},
				Keywords: classify.Keywords{Region: []string{"Улытау", "Жезказган"}},
			}),
		)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetchCommandPrintsJSON(t *testing.T) {
	useFakes(t)

	out, err := execute(t, "fetch")
	require.NoError(t, err)

	var got fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 2, got.Count)
	require.Equal(t, "https://u.kz/1", got.Data[0].Link)
	require.Empty(t, got.Sources)
}

func TestFetchCommandLimitAndSources(t *testing.T) {
	useFakes(t)

	out, err := execute(t, "fetch", "--limit", "1", "--sources")
	require.NoError(t, err)

	var got fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 1, got.Count)
	require.Len(t, got.Sources, 1)
	require.True(t, got.Sources[0].OK)
}

func TestFetchCommandRejectsNegativeLimit(t *testing.T) {
	useFakes(t)

	_, err := execute(t, "fetch", "--limit", "-1")
	require.Error(t, err)
}

func TestFetchCommandAppInitFailure(t *testing.T) {
	useFakes(t)
	newApp = func(context.Context, config.Config, *zap.Logger) (*app.App, error) {
		return nil, errors.New("boom")
	}

	_, err := execute(t, "fetch")
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestSourcesCommand(t *testing.T) {
	useFakes(t)

	out, err := execute(t, "sources", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Count   int           `json:"count"`
		Sources []news.Source `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 24, got.Count)

	out, err = execute(t, "sources")
	require.NoError(t, err)
	require.Contains(t, out, "type: channel-view")

	_, err = execute(t, "sources", "--format", "xml")
	require.Error(t, err)
}

func TestRootCommandBadConfig(t *testing.T) {
	useFakes(t)

	_, err := execute(t, "--config", "/nonexistent/insight.yaml", "sources")
	require.ErrorContains(t, err, "load config")
}
