// Package comments keeps a local view of a channel's comment thread loosely
// synchronized with a backing store. The SyncEngine pulls snapshots on a
// fixed interval and applies local writes (post, like) optimistically before
// persistence confirms them; the store is treated as an opaque last-write-wins
// actor shared with other clients.
package comments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChannelID is used when no channel ARN is available.
const DefaultChannelID = "default"

// Comment is one record in a channel's append-only thread.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
}

// New constructs a comment with a collision-resistant id and the current UTC
// timestamp.
func New(text, username string) Comment {
	return Comment{
		ID:        uuid.New().String(),
		Text:      text,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Likes:     0,
	}
}

// ChannelIDFromARN derives the channel id from an IVS channel ARN: the last
// path segment, or DefaultChannelID when the ARN is empty. A bare id (no
// slash) is returned unchanged, so callers may pass either form.
func ChannelIDFromARN(arn string) string {
	if arn == "" {
		return DefaultChannelID
	}
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		if seg := arn[i+1:]; seg != "" {
			return seg
		}
		return DefaultChannelID
	}
	return arn
}
