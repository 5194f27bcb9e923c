package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnsupported is recorded when the platform capability check fails.
var ErrUnsupported = errors.New("player not supported on this platform")

const defaultVolume = 100

// Controller owns the lifecycle of one underlying player instance. All
// failures are captured into the session's LastError and surfaced through
// Snapshot; none escape as panics or returned faults past the boundary.
// A disposed controller ignores any late asynchronous completions.
type Controller struct {
	lib Library
	log *slog.Logger

	mu         sync.Mutex
	surface    Surface
	player     VideoPlayer
	state      State
	url        string
	volume     int
	lastVolume int // last non-zero volume, restored on unmute
	muted      bool
	fullscreen bool
	lastErr    *ErrorRecord

	disposed bool
	loadGen  uint64 // latest SetPlaybackURL wins over stale in-flight loads
	done     chan struct{}
}

// NewController returns a controller in the Uninitialized state. The playback
// URL may be set before or after Initialize.
func NewController(lib Library) *Controller {
	return &Controller{
		lib:        lib,
		log:        slog.Default().With(slog.String("component", "player")),
		state:      StateUninitialized,
		volume:     defaultVolume,
		lastVolume: defaultVolume,
		done:       make(chan struct{}),
	}
}

// Snapshot returns the current observable session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		State:       c.state,
		PlaybackURL: c.url,
		Volume:      c.volume,
		Muted:       c.muted,
		Fullscreen:  c.fullscreen,
		LastError:   c.lastErr,
	}
}

// Initialize constructs the underlying player bound to surface. An
// unsupported platform or a construction failure is reported through the
// session state, not returned: the caller reads Snapshot for the outcome.
func (c *Controller) Initialize(surface Surface) {
	c.mu.Lock()
	if c.disposed || c.player != nil {
		c.mu.Unlock()
		return
	}
	if !c.lib.IsSupported() {
		c.state = StateUnsupported
		c.lastErr = &ErrorRecord{Message: ErrUnsupported.Error(), Source: "unsupported"}
		c.mu.Unlock()
		c.log.Warn("player unsupported on this platform")
		return
	}
	c.surface = surface
	p, err := c.lib.Create(surface)
	if err != nil {
		c.state = StateErrored
		c.lastErr = &ErrorRecord{Message: fmt.Sprintf("initialization error: %v", err), Source: "initialize"}
		c.mu.Unlock()
		c.log.Error("player create failed", slog.Any("err", err))
		return
	}
	c.player = p
	c.state = StateInitializing
	url := c.url
	c.mu.Unlock()

	go c.watchEvents(p.Events())

	if url != "" {
		c.loadAndPlay(url)
	}
}

// SetPlaybackURL stores the URL for use at Initialize time, or reloads the
// existing instance against the new URL without recreating it. Unchanged
// URLs are a no-op. The most recently set URL wins over in-flight loads.
func (c *Controller) SetPlaybackURL(url string) {
	c.mu.Lock()
	if c.disposed || url == c.url {
		c.mu.Unlock()
		return
	}
	c.url = url
	hasPlayer := c.player != nil
	c.mu.Unlock()
	if hasPlayer {
		c.loadAndPlay(url)
	}
}

// loadAndPlay issues load+play for url. Each call supersedes older pending
// ones via the load generation; stale completions are ignored rather than
// cancelled.
func (c *Controller) loadAndPlay(url string) {
	c.mu.Lock()
	if c.disposed || c.player == nil {
		c.mu.Unlock()
		return
	}
	c.loadGen++
	gen := c.loadGen
	p := c.player
	c.state = StateLoading
	c.mu.Unlock()

	if err := p.Load(url); err != nil {
		c.reportError(gen, "playback", fmt.Errorf("load %s: %w", url, err))
		return
	}
	c.startPlayback(p, gen)
}

// Play resumes playback. A controller without a live instance treats this as
// a no-op, not an error.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.disposed || c.player == nil {
		c.mu.Unlock()
		return
	}
	c.loadGen++
	gen := c.loadGen
	p := c.player
	c.mu.Unlock()
	c.startPlayback(p, gen)
}

// startPlayback capability-detects the async play shape. When the player
// reports completion we converge on that signal; otherwise the state is
// advanced to Playing optimistically.
func (c *Controller) startPlayback(p VideoPlayer, gen uint64) {
	if ap, ok := p.(AsyncPlayer); ok {
		ch := ap.PlayAsync()
		go func() {
			select {
			case err := <-ch:
				if err != nil {
					c.reportError(gen, "playback", fmt.Errorf("play: %w", err))
					return
				}
				c.transition(gen, StatePlaying)
			case <-c.done:
			}
		}()
		return
	}
	if err := p.Play(); err != nil {
		c.reportError(gen, "playback", fmt.Errorf("play: %w", err))
		return
	}
	c.transition(gen, StatePlaying)
}

// Pause halts playback; no-op without a live instance.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.disposed || c.player == nil {
		c.mu.Unlock()
		return
	}
	p := c.player
	c.mu.Unlock()
	if err := p.Pause(); err != nil {
		c.reportError(0, "control", fmt.Errorf("pause: %w", err))
		return
	}
	c.mu.Lock()
	if !c.disposed {
		c.state = StatePaused
	}
	c.mu.Unlock()
}

// SetMuted forwards the mute intent. Unmuting restores the last non-zero
// volume at the player level; the observable volume field is left as-is, so
// volume 0 with muted=false is a legal snapshot.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.muted = muted
	p := c.player
	restore := 0
	if !muted && c.volume == 0 && c.lastVolume > 0 {
		restore = c.lastVolume
	}
	c.mu.Unlock()
	if p == nil {
		return
	}
	p.SetMuted(muted)
	if restore > 0 {
		p.SetVolume(float64(restore) / 100)
	}
}

// SetVolume sets the session volume (0..100, clamped). Volume 0 implies
// muted.
func (c *Controller) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.volume = v
	if v == 0 {
		c.muted = true
	} else {
		c.lastVolume = v
		c.muted = false
	}
	muted := c.muted
	p := c.player
	c.mu.Unlock()
	if p == nil {
		return
	}
	p.SetVolume(float64(v) / 100)
	p.SetMuted(muted)
}

// ToggleFullscreen requests fullscreen on the rendering surface's container.
// Failures are recorded as control errors, never fatal.
func (c *Controller) ToggleFullscreen() {
	c.mu.Lock()
	if c.disposed || c.surface == nil {
		c.mu.Unlock()
		return
	}
	s := c.surface
	entering := !c.fullscreen
	c.mu.Unlock()

	var err error
	if entering {
		err = s.RequestFullscreen()
	} else {
		err = s.ExitFullscreen()
	}
	if err != nil {
		c.reportError(0, "control", fmt.Errorf("fullscreen: %w", err))
		return
	}
	c.mu.Lock()
	if !c.disposed {
		c.fullscreen = entering
	}
	c.mu.Unlock()
}

// Dispose detaches observers and releases the underlying player instance.
// Safe to call repeatedly and from any state; pending completions that
// arrive afterwards are dropped.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	close(c.done)
	p := c.player
	c.player = nil
	c.surface = nil
	c.mu.Unlock()
	if p != nil {
		p.Delete()
	}
}

// watchEvents consumes the player's notification channel until it is closed
// or the controller is disposed.
func (c *Controller) watchEvents(events <-chan Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		case <-c.done:
			return
		}
	}
}

func (c *Controller) handleEvent(ev Event) {
	switch ev.Kind {
	case EventError:
		c.reportError(0, "player", ev.Err)
	case EventStateChange:
		c.mu.Lock()
		if c.disposed || c.state == StateUnsupported {
			c.mu.Unlock()
			return
		}
		switch ev.State {
		case "Playing":
			c.state = StatePlaying
		case "Buffering", "Ready":
			c.state = StateLoading
		case "Idle", "Paused", "Ended":
			c.state = StatePaused
		}
		c.mu.Unlock()
	}
}

// reportError records err and moves the session to Errored. A non-zero gen
// restricts the transition to the load attempt that produced the error, so
// stale failures never clobber a newer load's outcome.
func (c *Controller) reportError(gen uint64, source string, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.disposed || (gen != 0 && gen != c.loadGen) {
		c.mu.Unlock()
		return
	}
	c.lastErr = &ErrorRecord{Message: err.Error(), Source: source}
	if source != "control" {
		c.state = StateErrored
	}
	c.mu.Unlock()
	c.log.Error("player error", slog.String("source", source), slog.Any("err", err))
}

// transition applies a generation-guarded state change from an asynchronous
// completion.
func (c *Controller) transition(gen uint64, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || (gen != 0 && gen != c.loadGen) {
		return
	}
	c.state = next
}
