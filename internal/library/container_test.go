package library

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonata/pkg/models"
)

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

// fakeGateway is an in-memory server backing the container in tests. Toggle
// calls can be held open to exercise the in-flight guard.
type fakeGateway struct {
	mu sync.Mutex

	profile   models.Profile
	playlists map[int]models.Playlist
	liked     map[int]bool
	saved     map[int]bool
	likes     map[int]int

	failWith error
	block    chan struct{} // when set, ToggleLike waits on it before answering

	toggleLikeCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		playlists: make(map[int]models.Playlist),
		liked:     make(map[int]bool),
		saved:     make(map[int]bool),
		likes:     make(map[int]int),
	}
}

func (g *fakeGateway) GetProfile(ctx context.Context) (models.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return models.Profile{}, g.failWith
	}
	return g.profile, nil
}

func (g *fakeGateway) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return nil, g.failWith
	}
	out := make([]models.Playlist, 0, len(g.playlists))
	for _, p := range g.playlists {
		out = append(out, p)
	}
	return out, nil
}

func (g *fakeGateway) GetPlaylist(ctx context.Context, playlistID int) (models.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.playlists[playlistID]
	if !ok {
		return models.Playlist{}, errors.New("playlist not found")
	}
	return p, nil
}

func (g *fakeGateway) ToggleLike(ctx context.Context, trackID int) (models.LikeResult, error) {
	if g.block != nil {
		<-g.block
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.toggleLikeCalls++
	if g.failWith != nil {
		return models.LikeResult{}, g.failWith
	}

	g.liked[trackID] = !g.liked[trackID]
	if g.liked[trackID] {
		g.likes[trackID]++
	} else {
		g.likes[trackID]--
	}
	return models.LikeResult{Liked: g.liked[trackID], LikesCount: g.likes[trackID]}, nil
}

func (g *fakeGateway) ToggleSave(ctx context.Context, trackID int) (models.SaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return models.SaveResult{}, g.failWith
	}
	g.saved[trackID] = !g.saved[trackID]
	return models.SaveResult{Saved: g.saved[trackID]}, nil
}

func (g *fakeGateway) CreatePlaylist(ctx context.Context, name, description string, isPublic bool, coverName string, cover io.Reader) (models.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return models.Playlist{}, g.failWith
	}
	p := models.Playlist{ID: len(g.playlists) + 1, Name: name, Description: description, IsPublic: isPublic}
	g.playlists[p.ID] = p
	return p, nil
}

func (g *fakeGateway) AddPlaylistTrack(ctx context.Context, playlistID, trackID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.playlists[playlistID]
	if !ok {
		return errors.New("playlist not found")
	}
	for _, t := range p.Tracks {
		if t.ID == trackID {
			return errors.New("already in playlist")
		}
	}
	p.Tracks = append(p.Tracks, models.Track{ID: trackID})
	p.TrackCount = len(p.Tracks)
	g.playlists[playlistID] = p
	return nil
}

func (g *fakeGateway) RemovePlaylistTrack(ctx context.Context, playlistID, trackID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.playlists[playlistID]
	if !ok {
		return errors.New("playlist not found")
	}
	for i, t := range p.Tracks {
		if t.ID == trackID {
			p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
			p.TrackCount = len(p.Tracks)
			g.playlists[playlistID] = p
			return nil
		}
	}
	return errors.New("not in playlist")
}

func (g *fakeGateway) DeletePlaylist(ctx context.Context, playlistID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.playlists[playlistID]; !ok {
		return errors.New("playlist not found")
	}
	delete(g.playlists, playlistID)
	return nil
}

func TestLoadInitialPopulatesCollections(t *testing.T) {
	gw := newFakeGateway()
	gw.profile = models.Profile{
		LikedSongs: []models.Track{{ID: 1}, {ID: 2}},
		SavedSongs: []models.Track{{ID: 3}},
	}
	gw.playlists[7] = models.Playlist{ID: 7, Name: "Focus"}

	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	assert.True(t, c.IsLiked(1))
	assert.True(t, c.IsLiked(2))
	assert.False(t, c.IsLiked(3))
	assert.True(t, c.IsSaved(3))
	assert.Len(t, c.Playlists(), 1)
}

func TestLoadInitialFailureLeavesContainerEmpty(t *testing.T) {
	gw := newFakeGateway()
	gw.failWith = errors.New("network down")

	c := NewContainer(gw)
	err := c.LoadInitial(context.Background())

	require.Error(t, err)
	assert.Empty(t, c.LikedTracks())
	assert.Empty(t, c.Playlists())
}

func TestLoadInitialReplacesStaleState(t *testing.T) {
	gw := newFakeGateway()
	gw.profile = models.Profile{LikedSongs: []models.Track{{ID: 1}}}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	gw.mu.Lock()
	gw.profile = models.Profile{LikedSongs: []models.Track{{ID: 2}}}
	gw.mu.Unlock()
	require.NoError(t, c.LoadInitial(context.Background()))

	assert.False(t, c.IsLiked(1))
	assert.True(t, c.IsLiked(2))
}

func TestToggleLikeRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	c := NewContainer(gw)
	track := models.Track{ID: 5, Title: "Song"}

	result, err := c.ToggleLike(context.Background(), track)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikesCount)
	assert.True(t, c.IsLiked(5))

	result, err = c.ToggleLike(context.Background(), track)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikesCount)
	assert.False(t, c.IsLiked(5))
}

func TestToggleLikeFailureLeavesStateUnchanged(t *testing.T) {
	gw := newFakeGateway()
	gw.profile = models.Profile{LikedSongs: []models.Track{{ID: 5}}}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	gw.mu.Lock()
	gw.failWith = errors.New("server error")
	gw.mu.Unlock()

	_, err := c.ToggleLike(context.Background(), models.Track{ID: 5})
	require.Error(t, err)
	assert.True(t, c.IsLiked(5), "failed toggle must not change local state")
}

func TestToggleLikeRejectsOverlappingMutation(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	c := NewContainer(gw)
	track := models.Track{ID: 5}

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.ToggleLike(context.Background(), track)
		firstDone <- err
	}()

	// Wait until the first toggle is holding the in-flight slot.
	require.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.inFlight[track.ID]
	}, testWait, testTick)

	_, err := c.ToggleLike(context.Background(), track)
	assert.ErrorIs(t, err, ErrMutationInFlight)

	close(gw.block)
	require.NoError(t, <-firstDone)
	assert.True(t, c.IsLiked(5))
	assert.Equal(t, 1, gw.toggleLikeCalls, "the rejected toggle must never reach the server")
}

func TestToggleLikeCancelledContextAppliesNothing(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	c := NewContainer(gw)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.ToggleLike(ctx, models.Track{ID: 5})
		done <- err
	}()

	cancel()
	close(gw.block)

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.IsLiked(5), "a response landing after cancellation applies nothing")
}

func TestToggleSaveRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	c := NewContainer(gw)
	track := models.Track{ID: 9}

	result, err := c.ToggleSave(context.Background(), track)
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.True(t, c.IsSaved(9))

	result, err = c.ToggleSave(context.Background(), track)
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.False(t, c.IsSaved(9))
}

func TestCreatePlaylistAppendsServerRecord(t *testing.T) {
	gw := newFakeGateway()
	c := NewContainer(gw)

	playlist, err := c.CreatePlaylist(context.Background(), "Road Trip", "", false, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", playlist.Name)

	lists := c.Playlists()
	require.Len(t, lists, 1)
	assert.Equal(t, playlist.ID, lists[0].ID)
}

func TestAddTrackRefreshesFromServer(t *testing.T) {
	gw := newFakeGateway()
	gw.playlists[1] = models.Playlist{ID: 1, Name: "Mix"}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	require.NoError(t, c.AddTrackToPlaylist(context.Background(), 1, models.Track{ID: 42}))

	lists := c.Playlists()
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Tracks, 1)
	assert.Equal(t, 42, lists[0].Tracks[0].ID)
}

func TestAddDuplicateTrackLeavesLocalStateUnchanged(t *testing.T) {
	gw := newFakeGateway()
	gw.playlists[1] = models.Playlist{ID: 1, Name: "Mix", Tracks: []models.Track{{ID: 42}}, TrackCount: 1}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	err := c.AddTrackToPlaylist(context.Background(), 1, models.Track{ID: 42})

	require.Error(t, err)
	lists := c.Playlists()
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].Tracks, 1)
}

func TestRemoveTrackRefreshesFromServer(t *testing.T) {
	gw := newFakeGateway()
	gw.playlists[1] = models.Playlist{ID: 1, Tracks: []models.Track{{ID: 42}, {ID: 43}}, TrackCount: 2}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	require.NoError(t, c.RemoveTrackFromPlaylist(context.Background(), 1, models.Track{ID: 42}))

	lists := c.Playlists()
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Tracks, 1)
	assert.Equal(t, 43, lists[0].Tracks[0].ID)
}

func TestRemoveAbsentTrackFails(t *testing.T) {
	gw := newFakeGateway()
	gw.playlists[1] = models.Playlist{ID: 1}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	err := c.RemoveTrackFromPlaylist(context.Background(), 1, models.Track{ID: 42})
	assert.Error(t, err)
}

func TestDeletePlaylistDropsLocalRecord(t *testing.T) {
	gw := newFakeGateway()
	gw.playlists[1] = models.Playlist{ID: 1}
	gw.playlists[2] = models.Playlist{ID: 2}
	c := NewContainer(gw)
	require.NoError(t, c.LoadInitial(context.Background()))

	require.NoError(t, c.DeletePlaylist(context.Background(), 1))

	lists := c.Playlists()
	require.Len(t, lists, 1)
	assert.Equal(t, 2, lists[0].ID)
}
