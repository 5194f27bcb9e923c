// Package player drives a third-party video player through its lifecycle.
// The Controller owns exactly one underlying player instance bound to one
// rendering surface, translates UI intents into player calls, and normalizes
// the library's heterogeneous error and completion shapes into a single
// error channel. The concrete player (e.g., the IVS web player) stays behind
// the VideoPlayer interface so the state machine is independent of which
// implementation is wired in.
package player

// Surface is the rendering surface a player instance attaches to. Its
// container is what fullscreen requests are issued against.
type Surface interface {
	RequestFullscreen() error
	ExitFullscreen() error
}

// EventKind discriminates notifications delivered by the underlying player.
type EventKind int

const (
	EventStateChange EventKind = iota
	EventError
)

// Event is a notification from the underlying player library.
type Event struct {
	Kind  EventKind
	State string // player-native state name for EventStateChange
	Err   error  // non-nil for EventError
}

// VideoPlayer abstracts the concrete player library. Implementations are
// assumed to be fire-and-forget: calls return immediately and failures are
// either returned directly or delivered on the Events channel. Players whose
// Play reports completion asynchronously additionally implement AsyncPlayer.
type VideoPlayer interface {
	Load(url string) error
	Play() error
	Pause() error
	SetMuted(muted bool)
	SetVolume(v float64) // 0..1
	Delete()
	Events() <-chan Event
}

// AsyncPlayer is optionally implemented by players whose Play call reports
// completion asynchronously (the promise-returning shape). The controller
// capability-detects this interface and falls back to optimistic convergence
// when it is absent.
type AsyncPlayer interface {
	PlayAsync() <-chan error
}

// Library creates player instances and reports platform support. It mirrors
// the capability-check + create entry points of player SDKs.
type Library interface {
	IsSupported() bool
	Create(surface Surface) (VideoPlayer, error)
}

// ErrorRecord captures the last reported player error for the UI.
type ErrorRecord struct {
	Message string
	Source  string // unsupported | initialize | playback | control | player
}

// Session is an observable snapshot of a playback session.
type Session struct {
	State       State
	PlaybackURL string
	Volume      int // 0..100
	Muted       bool
	Fullscreen  bool
	LastError   *ErrorRecord
}
