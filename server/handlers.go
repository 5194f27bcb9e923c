package server

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/lumaview/ivs-lounge/backend/comments"
	"github.com/lumaview/ivs-lounge/backend/config"
	"github.com/lumaview/ivs-lounge/backend/ivsapi"
)

// Handlers holds dependencies for all HTTP handlers. db and ivs may be nil
// when the chosen store backend needs no database or no AWS credentials are
// configured; handlers that need them degrade to 503.
type Handlers struct {
	cfg   *config.Config
	db    *sql.DB
	store comments.Store
	ivs   *ivsapi.Service
	hub   *wsHub
	feed  *commentFeed
	start time.Time
	ctx   context.Context
}

// NewHandlers creates a Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, cfg *config.Config, db *sql.DB, st comments.Store, ivs *ivsapi.Service) *Handlers {
	return &Handlers{
		cfg:   cfg,
		db:    db,
		store: st,
		ivs:   ivs,
		hub:   newWSHub(),
		feed:  newCommentFeed(),
		start: time.Now(),
		ctx:   ctx,
	}
}

// commentFeed fans out newly posted or liked comments to SSE subscribers,
// keyed by channel id.
type commentFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan comments.Comment]struct{}
}

func newCommentFeed() *commentFeed {
	return &commentFeed{subs: make(map[string]map[chan comments.Comment]struct{})}
}

func (f *commentFeed) subscribe(channelID string) chan comments.Comment {
	ch := make(chan comments.Comment, 16)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[channelID] == nil {
		f.subs[channelID] = make(map[chan comments.Comment]struct{})
	}
	f.subs[channelID][ch] = struct{}{}
	return ch
}

func (f *commentFeed) unsubscribe(channelID string, ch chan comments.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.subs[channelID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(f.subs, channelID)
		}
	}
}

// publish delivers c to all subscribers of the channel. Slow subscribers
// miss the event instead of blocking the handler.
func (f *commentFeed) publish(channelID string, c comments.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[channelID] {
		select {
		case ch <- c:
		default:
		}
	}
}
