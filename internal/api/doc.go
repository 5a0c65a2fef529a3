// Package api hosts the HTTP server, middleware, and JSON handlers for the
// news feed. Notable routes:
//   - GET /news for the ranked item list, optionally capped by ?limit=N.
//   - GET /debug/sources and /debug/breakers for per-source diagnostics.
//   - GET /health, /healthz and /readyz for liveness checks and probes.
//   - GET /metrics for Prometheus scraping.
package api
