// Package main hosts the insight entrypoint.
//
// Architecture overview:
//   - Fetch cycle: internal/orchestrator fans the catalog's sources out to the feed, html-listing and channel-view
//     adapters on a bounded errgroup pool under a batch deadline. Each source sits behind its own circuit breaker;
//     failures are isolated and recorded as per-source status.
//   - Pipeline: internal/pipeline dedups by link, drops items older than the freshness window, applies exclusion and
//     region gating, classifies legal category, scores 1-5 and sorts by score then publication time.
//   - Surfaces: internal/api serves /news, /debug/sources and health probes; internal/bot answers Telegram commands;
//     internal/monitor pushes unseen items to subscribers on a timer. All three read through one aggregator that
//     coalesces concurrent cycles.
//   - State: subscribers and delivered links live in the configured store (file, memory or postgres).
//
// Quick checklist:
//   - Configure env vars: ULYTAU_SERVER_PORT or PORT, ULYTAU_FETCH_CONCURRENCY, ULYTAU_STORE_PROVIDER,
//     ULYTAU_STORE_POSTGRES_DSN, BOT_TOKEN with ULYTAU_TELEGRAM_ENABLED=true for the bot.
//   - Run locally: go run ./cmd/insight serve --config config.yaml, or go run ./cmd/insight fetch --limit 5.
//   - The process reacts to SIGINT/SIGTERM by draining the HTTP server and stopping the bot and monitor.
package main
