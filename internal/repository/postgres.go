package repository

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS claims (
		id            TEXT PRIMARY KEY,
		status        TEXT NOT NULL DEFAULT '',
		claimant_name TEXT NOT NULL DEFAULT '',
		village       TEXT NOT NULL DEFAULT '',
		area_ha       DOUBLE PRECISION,
		fields_json   JSONB NOT NULL,
		document_json JSONB NOT NULL,
		content_hash  TEXT NOT NULL DEFAULT '',
		geometry      JSONB NOT NULL,
		warnings_json JSONB NOT NULL DEFAULT '[]',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS claims_status_idx ON claims (status)`,
	`CREATE INDEX IF NOT EXISTS claims_hash_idx ON claims (content_hash)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id                 TEXT PRIMARY KEY,
		run_id             TEXT NOT NULL,
		claim_id           TEXT NOT NULL REFERENCES claims (id) ON DELETE CASCADE,
		rank               INTEGER NOT NULL,
		scheme_id          TEXT NOT NULL,
		scheme_name        TEXT NOT NULL,
		score              DOUBLE PRECISION NOT NULL,
		matched_json       JSONB NOT NULL,
		unmatched_json     JSONB NOT NULL,
		indeterminate_json JSONB NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS recommendations_claim_idx ON recommendations (claim_id, created_at)`,
}

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// Open creates a pgx pool tuned from cfg.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, dbError("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "forest-rights-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, dbError("connect", err)
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// Close closes the pool gracefully.
func Close(pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing database connections")
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return dbError("ping", err)
	}
	logger.Debug("database ping successful")
	return nil
}

// NewPostgresStore opens a pool, verifies it and migrates the schema.
// Queries go through database/sql on top of the pool.
func NewPostgresStore(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := HealthCheck(ctx, pool, cfg.DialTimeout, logger); err != nil {
		Close(pool, logger)
		return nil, err
	}

	s := &sqlStore{
		db:      stdlib.OpenDBFromPool(pool),
		dialect: dialect{name: "postgres", placeholder: postgresPlaceholder, schema: postgresSchema},
		now:     new(clock).now,
		logger:  logger,
		onClose: func() { Close(pool, logger) },
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
