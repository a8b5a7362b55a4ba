// Package library holds the signed-in user's liked songs, saved songs and
// playlists, and keeps them consistent with the server after every mutation.
// The server's last confirmed response is authoritative: local collections
// are corrected to match it, never the reverse.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"sonata/pkg/models"
)

// Container errors.
var (
	// ErrMutationInFlight rejects a second toggle for the same track while
	// the first is still awaiting the server, preventing lost updates.
	ErrMutationInFlight = errors.New("mutation already in flight for this track")
)

// Gateway is the remote surface the container needs. *gateway.Client
// implements it; tests substitute fakes.
type Gateway interface {
	GetProfile(ctx context.Context) (models.Profile, error)
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
	GetPlaylist(ctx context.Context, playlistID int) (models.Playlist, error)
	ToggleLike(ctx context.Context, trackID int) (models.LikeResult, error)
	ToggleSave(ctx context.Context, trackID int) (models.SaveResult, error)
	CreatePlaylist(ctx context.Context, name, description string, isPublic bool, coverName string, cover io.Reader) (models.Playlist, error)
	AddPlaylistTrack(ctx context.Context, playlistID, trackID int) error
	RemovePlaylistTrack(ctx context.Context, playlistID, trackID int) error
	DeletePlaylist(ctx context.Context, playlistID int) error
}

// Container is the per-session source of truth for library state. It is the
// sole writer of its collections; reads are unrestricted.
type Container struct {
	mu sync.RWMutex

	gateway Gateway

	liked     map[int]models.Track
	saved     map[int]models.Track
	playlists []models.Playlist

	inFlight map[int]bool // track IDs with a toggle awaiting the server
}

// NewContainer creates an empty library container backed by the gateway.
func NewContainer(gw Gateway) *Container {
	return &Container{
		gateway:  gw,
		liked:    make(map[int]models.Track),
		saved:    make(map[int]models.Track),
		inFlight: make(map[int]bool),
	}
}

// LoadInitial fetches the user profile and playlist list once at session
// start. On failure the container stays empty and the caller surfaces the
// error; no retry is attempted.
func (c *Container) LoadInitial(ctx context.Context) error {
	profile, err := c.gateway.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	playlists, err := c.gateway.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.liked = make(map[int]models.Track, len(profile.LikedSongs))
	c.saved = make(map[int]models.Track, len(profile.SavedSongs))
	for _, t := range profile.LikedSongs {
		c.liked[t.ID] = t
	}
	for _, t := range profile.SavedSongs {
		c.saved[t.ID] = t
	}
	c.playlists = playlists
	return nil
}

// ToggleLike flips the track's like membership. The request is awaited and
// exactly one state transition is applied from the server's response; there
// is no optimistic pre-update. On failure the local set is left unchanged.
func (c *Container) ToggleLike(ctx context.Context, track models.Track) (models.LikeResult, error) {
	if err := c.beginMutation(track.ID); err != nil {
		return models.LikeResult{}, err
	}
	defer c.endMutation(track.ID)

	result, err := c.gateway.ToggleLike(ctx, track.ID)
	if err != nil {
		return models.LikeResult{}, err
	}
	// A response landing after cancellation applies nothing.
	if ctx.Err() != nil {
		return models.LikeResult{}, ctx.Err()
	}

	c.mu.Lock()
	if result.Liked {
		track.LikesCount = result.LikesCount
		c.liked[track.ID] = track
	} else {
		delete(c.liked, track.ID)
	}
	c.mu.Unlock()

	return result, nil
}

// ToggleSave flips the track's saved membership, symmetric to ToggleLike.
func (c *Container) ToggleSave(ctx context.Context, track models.Track) (models.SaveResult, error) {
	if err := c.beginMutation(track.ID); err != nil {
		return models.SaveResult{}, err
	}
	defer c.endMutation(track.ID)

	result, err := c.gateway.ToggleSave(ctx, track.ID)
	if err != nil {
		return models.SaveResult{}, err
	}
	if ctx.Err() != nil {
		return models.SaveResult{}, ctx.Err()
	}

	c.mu.Lock()
	if result.Saved {
		c.saved[track.ID] = track
	} else {
		delete(c.saved, track.ID)
	}
	c.mu.Unlock()

	return result, nil
}

// CreatePlaylist creates a playlist server-side and appends the returned
// record to the local list.
func (c *Container) CreatePlaylist(ctx context.Context, name, description string, isPublic bool, coverName string, cover io.Reader) (models.Playlist, error) {
	playlist, err := c.gateway.CreatePlaylist(ctx, name, description, isPublic, coverName, cover)
	if err != nil {
		return models.Playlist{}, err
	}
	if ctx.Err() != nil {
		return models.Playlist{}, ctx.Err()
	}

	c.mu.Lock()
	c.playlists = append(c.playlists, playlist)
	c.mu.Unlock()

	return playlist, nil
}

// AddTrackToPlaylist adds the track server-side, then re-fetches the affected
// playlist rather than computing the new state locally. Server-side
// membership checks are the authority.
func (c *Container) AddTrackToPlaylist(ctx context.Context, playlistID int, track models.Track) error {
	if err := c.gateway.AddPlaylistTrack(ctx, playlistID, track.ID); err != nil {
		return err
	}
	return c.refreshPlaylist(ctx, playlistID)
}

// RemoveTrackFromPlaylist removes the track server-side, then re-fetches the
// affected playlist.
func (c *Container) RemoveTrackFromPlaylist(ctx context.Context, playlistID int, track models.Track) error {
	if err := c.gateway.RemovePlaylistTrack(ctx, playlistID, track.ID); err != nil {
		return err
	}
	return c.refreshPlaylist(ctx, playlistID)
}

// DeletePlaylist deletes server-side and drops the local record.
func (c *Container) DeletePlaylist(ctx context.Context, playlistID int) error {
	if err := c.gateway.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	for i, p := range c.playlists {
		if p.ID == playlistID {
			c.playlists = append(c.playlists[:i], c.playlists[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// refreshPlaylist replaces the local copy of one playlist with the server's
// current view.
func (c *Container) refreshPlaylist(ctx context.Context, playlistID int) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	playlist, err := c.gateway.GetPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to refresh playlist %d: %w", playlistID, err)
	}

	c.mu.Lock()
	replaced := false
	for i, p := range c.playlists {
		if p.ID == playlistID {
			c.playlists[i] = playlist
			replaced = true
			break
		}
	}
	if !replaced {
		c.playlists = append(c.playlists, playlist)
	}
	c.mu.Unlock()
	return nil
}

// IsLiked reports membership in the liked set.
func (c *Container) IsLiked(trackID int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.liked[trackID]
	return ok
}

// IsSaved reports membership in the saved set.
func (c *Container) IsSaved(trackID int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.saved[trackID]
	return ok
}

// LikedTracks returns a copy of the liked set.
func (c *Container) LikedTracks() []models.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Track, 0, len(c.liked))
	for _, t := range c.liked {
		out = append(out, t)
	}
	return out
}

// SavedTracks returns a copy of the saved set.
func (c *Container) SavedTracks() []models.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Track, 0, len(c.saved))
	for _, t := range c.saved {
		out = append(out, t)
	}
	return out
}

// Playlists returns a copy of the playlist list.
func (c *Container) Playlists() []models.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Playlist, len(c.playlists))
	copy(out, c.playlists)
	return out
}

// beginMutation marks a track's toggle as in flight, rejecting overlap.
func (c *Container) beginMutation(trackID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight[trackID] {
		return ErrMutationInFlight
	}
	c.inFlight[trackID] = true
	return nil
}

func (c *Container) endMutation(trackID int) {
	c.mu.Lock()
	delete(c.inFlight, trackID)
	c.mu.Unlock()
}
