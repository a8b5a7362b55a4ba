package player

import "sonata/pkg/models"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged EventType = iota // A different track became the queue head
	EventStateChanged                  // Play/pause or shuffle/repeat flag changed
	EventQueueEnded                    // The queue ran out on a natural advance
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventQueueEnded:
		return "queue_ended"
	default:
		return "unknown"
	}
}

// Event represents a playback event emitted by the queue manager.
type Event struct {
	Type  EventType
	Track *models.Track // Queue head at emission time (nil when the queue is empty)
	State State
}
