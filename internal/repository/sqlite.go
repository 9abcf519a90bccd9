package repository

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS claims (
		id            TEXT PRIMARY KEY,
		status        TEXT NOT NULL DEFAULT '',
		claimant_name TEXT NOT NULL DEFAULT '',
		village       TEXT NOT NULL DEFAULT '',
		area_ha       REAL,
		fields_json   TEXT NOT NULL,
		document_json TEXT NOT NULL,
		content_hash  TEXT NOT NULL DEFAULT '',
		geometry      TEXT NOT NULL,
		warnings_json TEXT NOT NULL DEFAULT '[]',
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
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
		score              REAL NOT NULL,
		matched_json       TEXT NOT NULL,
		unmatched_json     TEXT NOT NULL,
		indeterminate_json TEXT NOT NULL,
		created_at         TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS recommendations_claim_idx ON recommendations (claim_id, created_at)`,
}

// NewSQLiteStore opens (creating if needed) a SQLite database file and
// migrates it. Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening sqlite store", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open sqlite store", "path", path, "error", err)
		return nil, dbError("open sqlite", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	s := &sqlStore{
		db:      db,
		dialect: dialect{name: "sqlite", schema: sqliteSchema},
		now:     new(clock).now,
		logger:  logger,
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
