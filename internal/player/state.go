// Package player provides client-side playback control: an ordered track
// queue with the playing track fixed at the head, and a transport adapter
// binding the queue to a single media handle.
package player

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No track loaded (queue empty)
	StatePlaying              // Head track is playing
	StatePaused               // Head track is loaded but paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
