// Package db provides database connection helpers, schema migration, and small data access helpers.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection with the given DSN. The caller resolves
// the DSN through config.Load so there is a single source of truth for it.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("connect: empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent embedded schema changes for all required tables
// and indices. It is the fallback for deployments without the versioned
// migration history; RunMigrations is the primary path.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS comments (
			channel_id TEXT NOT NULL,
			id TEXT NOT NULL,
			text TEXT NOT NULL,
			username TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			likes INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			PRIMARY KEY (channel_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_channel_position ON comments (channel_id, position)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// GetKV returns the value for key from the kv table, or empty string when absent.
func GetKV(ctx context.Context, db *sql.DB, key string) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// SetKV upserts a kv entry.
func SetKV(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW()) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		key, value)
	return err
}
