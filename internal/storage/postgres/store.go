// Package postgres provides the Postgres-backed subscriber store.
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/ulytau-insight/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id    BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS seen_links (
	id      BIGSERIAL PRIMARY KEY,
	link    TEXT NOT NULL UNIQUE,
	seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	SeenLimit       int
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store keeps subscribers and seen links in two tables.
type Store struct {
	pool  pool
	limit int
}

// New connects to Postgres and bootstraps the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.SeenLimit)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, seenLimit int) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if seenLimit <= 0 {
		seenLimit = storage.MaxSeenLinks
	}
	return &Store{pool: p, limit: seenLimit}, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// AddSubscriber implements news.SubscriberStore.
func (s *Store) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	query, args, err := psql.Insert("subscribers").
		Columns("chat_id").
		Values(chatID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert subscriber: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveSubscriber implements news.SubscriberStore.
func (s *Store) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	query, args, err := psql.Delete("subscribers").Where(sq.Eq{"chat_id": chatID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete subscriber: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete subscriber: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Subscribers implements news.SubscriberStore.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	query, args, err := psql.Select("chat_id").From("subscribers").OrderBy("created_at", "chat_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subscribers: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return out, nil
}

// IsSeen implements news.SubscriberStore.
func (s *Store) IsSeen(ctx context.Context, link string) (bool, error) {
	query, args, err := psql.Select("1").
		From("seen_links").
		Where(sq.Eq{"link": link}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen link query: %w", err)
	}
	var seen bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&seen); err != nil {
		return false, fmt.Errorf("query seen link: %w", err)
	}
	return seen, nil
}

// MarkSeen implements news.SubscriberStore. New links trim the table to the
// newest limit rows.
func (s *Store) MarkSeen(ctx context.Context, link string) (bool, error) {
	if link == "" {
		return false, nil
	}
	query, args, err := psql.Insert("seen_links").
		Columns("link").
		Values(link).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert seen link: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert seen link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	query, args, err = psql.Delete("seen_links").
		Where(sq.Expr("id NOT IN (SELECT id FROM seen_links ORDER BY id DESC LIMIT ?)", s.limit)).
		ToSql()
	if err != nil {
		return true, fmt.Errorf("build trim seen links: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return true, fmt.Errorf("trim seen links: %w", err)
	}
	return true, nil
}
