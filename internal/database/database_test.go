package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonata/pkg/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestTrack(t *testing.T, db *Database, title, artist, album, path string) int {
	t.Helper()
	id, err := db.InsertTrack(models.Track{
		Title:     title,
		Artist:    artist,
		Album:     album,
		Duration:  200,
		AudioPath: path,
		FileSize:  1024,
	})
	require.NoError(t, err)
	return id
}

func createTestUser(t *testing.T, db *Database, email string) models.User {
	t.Helper()
	user, err := db.CreateUser("Test User", email, "hash", models.RoleUser)
	require.NoError(t, err)
	return user
}

func TestInsertAndGetTrack(t *testing.T) {
	db := newTestDB(t)
	id := insertTestTrack(t, db, "Blue", "Artist", "Album", "/media/blue.mp3")

	track, err := db.GetTrackByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Blue", track.Title)
	assert.Equal(t, "/media/blue.mp3", track.AudioPath)
	assert.Equal(t, 0, track.LikesCount)
}

func TestInsertTrackUpsertsByPath(t *testing.T) {
	db := newTestDB(t)
	first := insertTestTrack(t, db, "Old Title", "A", "X", "/media/a.mp3")
	second := insertTestTrack(t, db, "New Title", "A", "X", "/media/a.mp3")

	assert.Equal(t, first, second, "same path must update, not duplicate")

	track, err := db.GetTrackByID(first)
	require.NoError(t, err)
	assert.Equal(t, "New Title", track.Title)

	all, err := db.GetAllTracks()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetTrackByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTrackByID(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchTracks(t *testing.T) {
	db := newTestDB(t)
	insertTestTrack(t, db, "Midnight City", "M83", "Hurry Up", "/m/1.mp3")
	insertTestTrack(t, db, "Sunrise", "Norah Jones", "Feels Like Home", "/m/2.mp3")

	byTitle, err := db.SearchTracks("midnight")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Midnight City", byTitle[0].Title)

	byArtist, err := db.SearchTracks("norah")
	require.NoError(t, err)
	assert.Len(t, byArtist, 1)

	none, err := db.SearchTracks("zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRemoveTrackByPath(t *testing.T) {
	db := newTestDB(t)
	id := insertTestTrack(t, db, "Gone", "A", "X", "/m/gone.mp3")

	require.NoError(t, db.RemoveTrackByPath("/m/gone.mp3"))

	_, err := db.GetTrackByID(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserAndRoles(t *testing.T) {
	db := newTestDB(t)

	count, err := db.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	user, err := db.CreateUser("Ada", "ada@example.com", "hash", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NotZero(t, user.ID)

	loaded, err := db.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)

	count, err = db.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	_, err := db.CreateUser("Other", "dup@example.com", "hash", models.RoleUser)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleLikeUpdatesMembershipAndCount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "Liked", "A", "X", "/m/l.mp3")

	result, err := db.ToggleLike(user.ID, trackID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikesCount)

	// The counter and the membership move together.
	track, err := db.GetTrackByID(trackID)
	require.NoError(t, err)
	assert.Equal(t, 1, track.LikesCount)

	liked, err := db.GetLikedTracks(user.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, trackID, liked[0].ID)

	result, err = db.ToggleLike(user.ID, trackID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikesCount)

	liked, err = db.GetLikedTracks(user.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestToggleLikeCountsAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	trackID := insertTestTrack(t, db, "Popular", "A", "X", "/m/p.mp3")

	_, err := db.ToggleLike(alice.ID, trackID)
	require.NoError(t, err)
	result, err := db.ToggleLike(bob.ID, trackID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.LikesCount)

	result, err = db.ToggleLike(alice.ID, trackID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 1, result.LikesCount)
}

func TestToggleLikeUnknownTrack(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")

	_, err := db.ToggleLike(user.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleSave(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "Kept", "A", "X", "/m/k.mp3")

	result, err := db.ToggleSave(user.ID, trackID)
	require.NoError(t, err)
	assert.True(t, result.Saved)

	saved, err := db.GetSavedTracks(user.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	result, err = db.ToggleSave(user.ID, trackID)
	require.NoError(t, err)
	assert.False(t, result.Saved)
}

func TestPlaylistLifecycle(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	first := insertTestTrack(t, db, "One", "A", "X", "/m/1.mp3")
	second := insertTestTrack(t, db, "Two", "A", "X", "/m/2.mp3")

	playlistID, err := db.CreatePlaylist("Mix", "road trip", "", false, user.ID)
	require.NoError(t, err)

	require.NoError(t, db.AddTrackToPlaylist(playlistID, first))
	require.NoError(t, db.AddTrackToPlaylist(playlistID, second))

	playlist, err := db.GetPlaylistByID(playlistID)
	require.NoError(t, err)
	assert.Equal(t, "Mix", playlist.Name)
	require.Len(t, playlist.Tracks, 2)
	assert.Equal(t, first, playlist.Tracks[0].ID, "tracks keep insertion order")
	assert.Equal(t, second, playlist.Tracks[1].ID)

	require.NoError(t, db.RemoveTrackFromPlaylist(playlistID, first))
	playlist, err = db.GetPlaylistByID(playlistID)
	require.NoError(t, err)
	require.Len(t, playlist.Tracks, 1)
	assert.Equal(t, second, playlist.Tracks[0].ID)

	_, err = db.DeletePlaylist(playlistID)
	require.NoError(t, err)
	_, err = db.GetPlaylistByID(playlistID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddDuplicateTrackToPlaylist(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "One", "A", "X", "/m/1.mp3")
	playlistID, err := db.CreatePlaylist("Mix", "", "", false, user.ID)
	require.NoError(t, err)

	require.NoError(t, db.AddTrackToPlaylist(playlistID, trackID))
	err = db.AddTrackToPlaylist(playlistID, trackID)
	assert.ErrorIs(t, err, ErrAlreadyInPlaylist)
}

func TestRemoveAbsentTrackFromPlaylist(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "One", "A", "X", "/m/1.mp3")
	playlistID, err := db.CreatePlaylist("Mix", "", "", false, user.ID)
	require.NoError(t, err)

	err = db.RemoveTrackFromPlaylist(playlistID, trackID)
	assert.ErrorIs(t, err, ErrNotInPlaylist)
}

func TestGetPlaylistsForUserIncludesPublic(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")

	_, err := db.CreatePlaylist("Private", "", "", false, owner.ID)
	require.NoError(t, err)
	_, err = db.CreatePlaylist("Public", "", "", true, owner.ID)
	require.NoError(t, err)

	own, err := db.GetPlaylistsForUser(owner.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	visible, err := db.GetPlaylistsForUser(other.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Public", visible[0].Name)
}

func TestDeleteTrackCascadesMemberships(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "Doomed", "A", "X", "/m/d.mp3")
	playlistID, err := db.CreatePlaylist("Mix", "", "", false, user.ID)
	require.NoError(t, err)
	require.NoError(t, db.AddTrackToPlaylist(playlistID, trackID))
	_, err = db.ToggleLike(user.ID, trackID)
	require.NoError(t, err)

	require.NoError(t, db.RemoveTrack(trackID))

	playlist, err := db.GetPlaylistByID(playlistID)
	require.NoError(t, err)
	assert.Empty(t, playlist.Tracks)

	liked, err := db.GetLikedTracks(user.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestRecordPlay(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	trackID := insertTestTrack(t, db, "Played", "A", "X", "/m/pl.mp3")

	assert.NoError(t, db.RecordPlay(user.ID, trackID))
	assert.NoError(t, db.RecordPlay(user.ID, trackID))
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping())
}
