// Package store provides interchangeable comment store bindings: an
// in-memory map for tests and single-process use, a file-backed store
// mirroring the browser-local persisted binding, a Postgres store for
// production, and an HTTP client for a remote comment server. All bindings
// satisfy comments.Store; every write replaces the full sequence and accepts
// last-write-wins semantics.
package store

import (
	"context"

	"github.com/lumaview/ivs-lounge/backend/comments"
)

// Liker is implemented by bindings that can increment a like without
// rewriting the whole sequence.
type Liker interface {
	Like(ctx context.Context, channelID, commentID string) (comments.Comment, error)
}

// Like increments the like count of one comment. Bindings implementing Liker
// apply the increment directly; others fall back to read-modify-write of the
// full sequence. Unknown ids return comments.ErrNotFound.
func Like(ctx context.Context, s comments.Store, channelID, commentID string) (comments.Comment, error) {
	if l, ok := s.(Liker); ok {
		return l.Like(ctx, channelID, commentID)
	}
	seq, err := s.Get(ctx, channelID)
	if err != nil {
		return comments.Comment{}, err
	}
	for i := range seq {
		if seq[i].ID == commentID {
			seq[i].Likes++
			if err := s.Put(ctx, channelID, seq); err != nil {
				return comments.Comment{}, err
			}
			return seq[i], nil
		}
	}
	return comments.Comment{}, comments.ErrNotFound
}

// Append adds one comment to a channel's sequence via read-modify-write.
// Server handlers use it for single-comment posts.
func Append(ctx context.Context, s comments.Store, channelID string, c comments.Comment) error {
	seq, err := s.Get(ctx, channelID)
	if err != nil {
		return err
	}
	return s.Put(ctx, channelID, append(seq, c))
}
