// Package store is the durable data model of the archive: items (chats and
// notes), temporal facts, manual links, and decay run metrics, persisted in
// PostgreSQL with a pgvector column for embedding search.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/rs/zerolog"
)

const (
	// connectMaxRetries bounds the startup connection retry loop.
	connectMaxRetries  = 10
	connectInitialWait = time.Second
	connectMaxWait     = 30 * time.Second
)

// Store manages all archive persistence over a pooled Postgres connection.
type Store struct {
	pool         *pgxpool.Pool
	embeddingDim int
	logger       zerolog.Logger
}

// New creates a Store over an existing pool. embeddingDim is the single
// vector dimension this deployment uses; writes with a different dimension
// are rejected.
func New(pool *pgxpool.Pool, embeddingDim int, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", "store").Logger()
	logger.Info().Int("embedding_dim", embeddingDim).Msg("Initializing store")
	return &Store{pool: pool, embeddingDim: embeddingDim, logger: logger}
}

// Pool exposes the underlying pool for lifecycle management.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Connect opens a pgx pool against databaseURL and verifies connectivity,
// retrying connection-class failures with exponential backoff (1s initial,
// 30s cap, x2, up to connectMaxRetries retries after the first attempt).
// Schema and SQL errors
// surface immediately.
func Connect(ctx context.Context, databaseURL string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = connectInitialWait
	bo.MaxInterval = connectMaxWait
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			if !retryable(err) {
				return backoff.Permanent(classify(err))
			}
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Database ping failed, retrying")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(bo, connectMaxRetries), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", classify(err))
	}

	logger.Info().Msg("Database connection established")
	return pool, nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
