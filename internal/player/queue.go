package player

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"sonata/pkg/models"
)

// Queue errors.
var (
	ErrNoTrack      = errors.New("no track loaded")
	ErrInvalidIndex = errors.New("queue index out of range")
)

// Queue maintains "what plays next" independent of which screen the user is
// browsing. The element at position 0 is always the track currently bound to
// the transport adapter; the queue is empty exactly when nothing is loaded.
type Queue struct {
	mu sync.RWMutex

	tracks  []models.Track // tracks[0] is the current track
	playing bool
	shuffle bool
	repeat  bool

	rng     *rand.Rand
	eventCh chan Event
}

// NewQueue creates an empty playback queue.
func NewQueue() *Queue {
	return &Queue{
		tracks:  make([]models.Track, 0),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		eventCh: make(chan Event, 16),
	}
}

// Events returns the event channel. Events are dropped rather than blocking
// the caller when no one is draining the channel.
func (q *Queue) Events() <-chan Event {
	return q.eventCh
}

// PlayTrack rebuilds the queue from the browsing context the selection was
// made in: the selected track goes first, followed by the remaining context
// tracks in order (shuffled when shuffle is active). An empty context yields
// a single-element queue.
func (q *Queue) PlayTrack(track models.Track, contextList []models.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rebuilt := make([]models.Track, 0, len(contextList)+1)
	rebuilt = append(rebuilt, track)
	for _, t := range contextList {
		if t.ID != track.ID {
			rebuilt = append(rebuilt, t)
		}
	}

	q.tracks = rebuilt
	q.playing = true
	if q.shuffle {
		q.shuffleTailLocked()
	}

	q.sendEventLocked(Event{Type: EventTrackChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// Advance drops the head and promotes the next track. On a single-element or
// empty queue it is a no-op: there is nothing to advance to.
func (q *Queue) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) <= 1 {
		if len(q.tracks) == 1 {
			q.sendEventLocked(Event{Type: EventQueueEnded, Track: q.headLocked(), State: q.stateLocked()})
		}
		return
	}

	q.tracks = q.tracks[1:]
	q.playing = true
	q.sendEventLocked(Event{Type: EventTrackChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// JumpTo moves the entry at index to the head and starts playing it. Index 0
// is already current, so it is a no-op.
func (q *Queue) JumpTo(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return ErrInvalidIndex
	}
	if index == 0 {
		return nil
	}

	target := q.tracks[index]
	rest := make([]models.Track, 0, len(q.tracks)-1)
	rest = append(rest, q.tracks[:index]...)
	rest = append(rest, q.tracks[index+1:]...)
	q.tracks = append([]models.Track{target}, rest...)
	q.playing = true

	q.sendEventLocked(Event{Type: EventTrackChanged, Track: q.headLocked(), State: q.stateLocked()})
	return nil
}

// ToggleShuffle flips the shuffle flag. Turning shuffle on reorders every
// entry after the head; turning it off leaves the current order as-is (the
// original order is not restored).
func (q *Queue) ToggleShuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shuffle = !q.shuffle
	if q.shuffle && len(q.tracks) > 1 {
		q.shuffleTailLocked()
	}
	q.sendEventLocked(Event{Type: EventStateChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// ToggleRepeat flips the repeat flag, consulted by the transport adapter's
// end-of-track handler.
func (q *Queue) ToggleRepeat() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.repeat = !q.repeat
	q.sendEventLocked(Event{Type: EventStateChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// SetPlaying sets the play/pause flag. A no-op when no track is loaded.
func (q *Queue) SetPlaying(playing bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 || q.playing == playing {
		return
	}
	q.playing = playing
	q.sendEventLocked(Event{Type: EventStateChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// TogglePlay flips play/pause. A no-op when no track is loaded.
func (q *Queue) TogglePlay() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return
	}
	q.playing = !q.playing
	q.sendEventLocked(Event{Type: EventStateChanged, Track: q.headLocked(), State: q.stateLocked()})
}

// CurrentTrack returns the queue head.
func (q *Queue) CurrentTrack() (models.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.tracks) == 0 {
		return models.Track{}, false
	}
	return q.tracks[0], true
}

// Tracks returns a copy of the queue.
func (q *Queue) Tracks() []models.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]models.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Len returns the queue length including the current track.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// IsPlaying reports the play/pause flag.
func (q *Queue) IsPlaying() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.playing
}

// ShuffleEnabled reports the shuffle flag.
func (q *Queue) ShuffleEnabled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.shuffle
}

// RepeatEnabled reports the repeat flag.
func (q *Queue) RepeatEnabled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.repeat
}

// GetState returns the current playback state.
func (q *Queue) GetState() State {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.stateLocked()
}

// shuffleTailLocked reorders positions 1..N-1 with Fisher-Yates, never
// touching the head. Must be called with lock held.
func (q *Queue) shuffleTailLocked() {
	tail := q.tracks[1:]
	for i := len(tail) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		tail[i], tail[j] = tail[j], tail[i]
	}
}

func (q *Queue) stateLocked() State {
	switch {
	case len(q.tracks) == 0:
		return StateIdle
	case q.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (q *Queue) headLocked() *models.Track {
	if len(q.tracks) == 0 {
		return nil
	}
	head := q.tracks[0]
	return &head
}

// sendEventLocked sends an event without blocking. Must be called with lock held.
func (q *Queue) sendEventLocked(e Event) {
	select {
	case q.eventCh <- e:
	default:
		// Channel full, drop event
	}
}
