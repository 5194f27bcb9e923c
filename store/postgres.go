package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumaview/ivs-lounge/backend/comments"
)

// Postgres persists comment sequences in the comments table (see
// db/migrations). Put replaces a channel's sequence inside one transaction,
// preserving the last-write-wins contract across replicas.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, channelID string) ([]comments.Comment, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, text, username, created_at, likes FROM comments WHERE channel_id=$1 ORDER BY position ASC`,
		channelID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]comments.Comment, 0)
	for rows.Next() {
		var c comments.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.Username, &c.Timestamp, &c.Likes); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) Put(ctx context.Context, channelID string, seq []comments.Comment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("failed to rollback put", slog.Any("err", err))
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE channel_id=$1`, channelID); err != nil {
		return fmt.Errorf("clear channel: %w", err)
	}
	for i, c := range seq {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (channel_id, id, text, username, created_at, likes, position) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			channelID, c.ID, c.Text, c.Username, c.Timestamp, c.Likes, i); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}
	return tx.Commit()
}

// Like implements Liker with a single UPDATE, avoiding the full rewrite.
func (p *Postgres) Like(ctx context.Context, channelID, commentID string) (comments.Comment, error) {
	var c comments.Comment
	err := p.db.QueryRowContext(ctx,
		`UPDATE comments SET likes=likes+1 WHERE channel_id=$1 AND id=$2 RETURNING id, text, username, created_at, likes`,
		channelID, commentID).Scan(&c.ID, &c.Text, &c.Username, &c.Timestamp, &c.Likes)
	if errors.Is(err, sql.ErrNoRows) {
		return comments.Comment{}, comments.ErrNotFound
	}
	if err != nil {
		return comments.Comment{}, fmt.Errorf("like comment: %w", err)
	}
	return c, nil
}
