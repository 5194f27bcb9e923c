package player

import "fmt"

// State represents the lifecycle state of a playback session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing        // underlying player constructed, observers attached
	StateLoading             // a stream URL is being loaded
	StatePlaying
	StatePaused
	StateErrored     // non-terminal; a later successful load recovers
	StateUnsupported // platform capability check failed; terminal for the session
)

var stateNames = [...]string{
	"uninitialized", "initializing", "loading",
	"playing", "paused", "errored", "unsupported",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}
