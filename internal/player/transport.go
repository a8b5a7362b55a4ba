package player

import (
	"context"
	"fmt"
	"sync"

	"sonata/pkg/models"
)

// Media is the single playable media handle owned by the transport adapter.
// Implementations wrap whatever playback backend the host application uses;
// only the adapter may touch it.
type Media interface {
	// Load binds an audio source to the handle, replacing any previous one.
	Load(url string) error
	// Play starts or resumes playback. An error means the backend rejected
	// playback; it is reported, not fatal.
	Play() error
	// Pause halts playback, keeping the source loaded.
	Pause()
	// Seek moves the playback position, in seconds.
	Seek(seconds float64)
	// SetVolume sets the output level as a fraction in [0,1].
	SetVolume(level float64)
}

// SourceResolver maps a track to the URL the media handle should load.
type SourceResolver func(models.Track) string

// Adapter binds the queue's head track to the media handle and exposes
// time/volume controls. All playback-affecting components go through the
// queue's operations; the adapter is the only writer of the media handle.
type Adapter struct {
	mu sync.Mutex

	queue   *Queue
	media   Media
	resolve SourceResolver

	current     *models.Track
	volume      float64
	muted       bool
	priorVolume float64

	errCh chan error
}

// NewAdapter creates a transport adapter bound to the given queue and media
// handle. resolve maps tracks to playable source URLs.
func NewAdapter(queue *Queue, media Media, resolve SourceResolver) *Adapter {
	return &Adapter{
		queue:   queue,
		media:   media,
		resolve: resolve,
		volume:  1.0,
		errCh:   make(chan error, 8),
	}
}

// Errors returns the channel on which non-fatal playback failures are
// reported (the toast-equivalent notification path).
func (a *Adapter) Errors() <-chan error {
	return a.errCh
}

// Run consumes queue events until the context is cancelled.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.queue.Events():
			a.HandleEvent(e)
		}
	}
}

// HandleEvent reacts to one queue event. Exported so hosts with their own
// event loop can pump events synchronously.
func (a *Adapter) HandleEvent(e Event) {
	switch e.Type {
	case EventTrackChanged:
		a.loadCurrent()
	case EventStateChanged:
		a.syncPlayback()
	case EventQueueEnded:
		a.mu.Lock()
		a.media.Pause()
		a.mu.Unlock()
		a.queue.SetPlaying(false)
	}
}

// loadCurrent loads the queue head into the media handle and starts playback
// when the playing flag is set. A load or play failure forces the flag off;
// the UI reflects a paused state rather than crashing.
func (a *Adapter) loadCurrent() {
	track, ok := a.queue.CurrentTrack()
	if !ok {
		return
	}

	a.mu.Lock()
	a.current = &track
	err := a.media.Load(a.resolve(track))
	a.mu.Unlock()

	if err != nil {
		a.report(fmt.Errorf("failed to load %q: %w", track.Title, err))
		a.queue.SetPlaying(false)
		return
	}

	if a.queue.IsPlaying() {
		a.mu.Lock()
		err := a.media.Play()
		a.mu.Unlock()
		if err != nil {
			a.report(fmt.Errorf("playback rejected for %q: %w", track.Title, err))
			a.queue.SetPlaying(false)
		}
	}
}

// syncPlayback aligns the media handle with the queue's play/pause flag.
func (a *Adapter) syncPlayback() {
	a.mu.Lock()
	if a.current == nil {
		a.mu.Unlock()
		return
	}

	var playErr error
	var title string
	if a.queue.IsPlaying() {
		playErr = a.media.Play()
		title = a.current.Title
	} else {
		a.media.Pause()
	}
	a.mu.Unlock()

	if playErr != nil {
		a.report(fmt.Errorf("playback rejected for %q: %w", title, playErr))
		a.queue.SetPlaying(false)
	}
}

// OnTrackEnd handles the media backend's natural end-of-track signal. With
// repeat active the same track replays from position 0 and the queue is
// untouched; otherwise the queue advances.
func (a *Adapter) OnTrackEnd() {
	if a.queue.RepeatEnabled() {
		a.mu.Lock()
		a.media.Seek(0)
		err := a.media.Play()
		a.mu.Unlock()
		if err != nil {
			a.report(fmt.Errorf("repeat playback rejected: %w", err))
			a.queue.SetPlaying(false)
		}
		return
	}
	a.queue.Advance()
}

// TogglePlay flips play/pause through the queue. A no-op when no track is
// loaded.
func (a *Adapter) TogglePlay() {
	a.queue.TogglePlay()
}

// Seek moves the playback position, clamped to [0, duration].
func (a *Adapter) Seek(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if max := float64(a.current.Duration); seconds > max {
		seconds = max
	}
	a.media.Seek(seconds)
}

// SetVolume sets the output level, clamped to [0,1]. An explicit volume
// change clears mute.
func (a *Adapter) SetVolume(level float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	a.volume = level
	a.muted = false
	a.media.SetVolume(level)
}

// ToggleMute silences the output, remembering the prior level and restoring
// it on unmute without re-reading user input.
func (a *Adapter) ToggleMute() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.muted {
		a.muted = false
		a.volume = a.priorVolume
		a.media.SetVolume(a.volume)
		return
	}
	a.muted = true
	a.priorVolume = a.volume
	a.volume = 0
	a.media.SetVolume(0)
}

// Volume returns the current level and mute flag.
func (a *Adapter) Volume() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume, a.muted
}

// report sends a playback failure without blocking.
func (a *Adapter) report(err error) {
	select {
	case a.errCh <- err:
	default:
	}
}
