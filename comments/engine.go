package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

// Store is the backing comment store the engine reconciles against. Both
// server-resident and client-resident bindings implement it; the engine does
// not care which. Put replaces the full sequence for a channel
// (last-write-wins); no read-modify-write transaction is attempted.
type Store interface {
	Get(ctx context.Context, channelID string) ([]Comment, error)
	Put(ctx context.Context, channelID string, seq []Comment) error
}

var (
	// ErrEmptyText rejects posts whose text is empty after trimming.
	ErrEmptyText = errors.New("comment text is empty")
	// ErrNoUsername rejects writes from clients without a resolved identity.
	ErrNoUsername = errors.New("username required")
	// ErrNotFound reports a like against an unknown comment id.
	ErrNotFound = errors.New("comment not found")
	// ErrNotBound reports an operation before BindChannel.
	ErrNotBound = errors.New("engine not bound to a channel")
)

// DefaultPollInterval matches the 10-unit fetch cadence of the original
// viewer.
const DefaultPollInterval = 10 * time.Second

// defaultDebounce suppresses the scheduled fetch that would otherwise race a
// just-persisted local write and visibly revert it.
const defaultDebounce = 2 * time.Second

// SyncEngine maintains the local comment thread for one bound channel.
// Locally-originated mutations are visible immediately (read-your-writes);
// the periodic fetch replaces the local sequence wholesale with the store's
// view, which under single-writer operation already includes them.
type SyncEngine struct {
	store    Store
	log      *slog.Logger
	interval time.Duration

	// Debounce is the window after a local write during which scheduled
	// fetches are skipped. Set before BindChannel; zero keeps the default.
	Debounce time.Duration

	mu        sync.Mutex
	channelID string
	thread    []Comment
	fetchErr  error // transient; cleared on the next successful fetch
	lastWrite time.Time
	gen       uint64 // bind generation; stale poll results are dropped
	cancel    context.CancelFunc
}

// NewSyncEngine creates an unbound engine. A non-positive interval falls back
// to DefaultPollInterval.
func NewSyncEngine(store Store, interval time.Duration) *SyncEngine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SyncEngine{
		store:    store,
		log:      slog.Default().With(slog.String("component", "comments")),
		interval: interval,
		Debounce: defaultDebounce,
	}
}

// BindChannel derives the channel id from source (an ARN or bare id),
// performs an immediate fetch, and arms the recurring fetch for as long as
// ctx lives or until Unbind/rebind. Rebinding to a different channel cancels
// the previous schedule first.
func (e *SyncEngine) BindChannel(ctx context.Context, source string) {
	id := ChannelIDFromARN(source)

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.gen++
	gen := e.gen
	e.channelID = id
	e.thread = nil
	e.fetchErr = nil
	e.lastWrite = time.Time{}
	e.mu.Unlock()

	if err := e.fetch(pollCtx, gen); err != nil {
		e.log.Warn("initial comment fetch failed", slog.String("channel", id), slog.Any("err", err))
	}
	go e.poll(pollCtx, gen, id)
}

// Unbind cancels the recurring fetch. Idempotent; the local snapshot is kept
// for callers that still hold a reference.
func (e *SyncEngine) Unbind() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++ // in-flight fetches on arrival see a stale generation
}

// poll runs the recurring fetch until cancellation. Fetch failures leave the
// previous snapshot in place and never stop the schedule.
func (e *SyncEngine) poll(ctx context.Context, gen uint64, channelID string) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			skip := !e.lastWrite.IsZero() && time.Since(e.lastWrite) < e.Debounce
			e.mu.Unlock()
			if skip {
				// A just-written local mutation may not be persisted yet;
				// fetching now could visibly revert the user's own action.
				continue
			}
			if err := e.fetch(ctx, gen); err != nil {
				e.log.Debug("comment poll failed; keeping stale snapshot",
					slog.String("channel", channelID), slog.Any("err", err))
			}
		}
	}
}

// Fetch forces an immediate reconcile against the store.
func (e *SyncEngine) Fetch(ctx context.Context) error {
	e.mu.Lock()
	gen := e.gen
	bound := e.channelID != ""
	e.mu.Unlock()
	if !bound {
		return ErrNotBound
	}
	return e.fetch(ctx, gen)
}

func (e *SyncEngine) fetch(ctx context.Context, gen uint64) error {
	e.mu.Lock()
	id := e.channelID
	e.mu.Unlock()

	start := time.Now()
	seq, err := e.store.Get(ctx, id)
	telemetry.ObserveCommentFetch(time.Since(start), err == nil)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// Unbound or rebound while the read was in flight; drop it.
		return nil
	}
	if err != nil {
		e.fetchErr = fmt.Errorf("fetch comments: %w", err)
		return e.fetchErr
	}
	e.thread = seq
	e.fetchErr = nil
	return nil
}

// Post appends a new comment locally, then persists the updated sequence.
// Empty (after trimming) text and missing usernames are rejected. A persist
// failure keeps the optimistic local append and is returned for the UI to
// surface.
func (e *SyncEngine) Post(ctx context.Context, text, username string) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, ErrEmptyText
	}
	if username == "" {
		return Comment{}, ErrNoUsername
	}

	c := New(text, username)

	e.mu.Lock()
	if e.channelID == "" {
		e.mu.Unlock()
		return Comment{}, ErrNotBound
	}
	e.thread = append(e.thread, c)
	seq := snapshot(e.thread)
	id := e.channelID
	e.lastWrite = time.Now()
	e.mu.Unlock()

	telemetry.IncCommentsPosted()
	if err := e.store.Put(ctx, id, seq); err != nil {
		// Optimistic-without-rollback: the local view keeps the comment.
		return c, fmt.Errorf("persist comment: %w", err)
	}
	return c, nil
}

// Like increments the like count of an existing comment, locally and in the
// persisted sequence. Unknown ids are reported with ErrNotFound and change
// nothing.
func (e *SyncEngine) Like(ctx context.Context, commentID string) error {
	e.mu.Lock()
	if e.channelID == "" {
		e.mu.Unlock()
		return ErrNotBound
	}
	idx := -1
	for i := range e.thread {
		if e.thread[i].ID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrNotFound
	}
	e.thread[idx].Likes++
	seq := snapshot(e.thread)
	id := e.channelID
	e.lastWrite = time.Now()
	e.mu.Unlock()

	telemetry.IncCommentsLiked()
	if err := e.store.Put(ctx, id, seq); err != nil {
		return fmt.Errorf("persist like: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the local thread in arrival order.
func (e *SyncEngine) Snapshot() []Comment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.thread)
}

// ChannelID returns the bound channel id, or empty when unbound.
func (e *SyncEngine) ChannelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channelID
}

// LastFetchError returns the transient fetch error, or nil after the last
// successful reconcile.
func (e *SyncEngine) LastFetchError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetchErr
}

func snapshot(seq []Comment) []Comment {
	out := make([]Comment, len(seq))
	copy(out, seq)
	return out
}
