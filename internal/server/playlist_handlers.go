package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"sonata/internal/database"
	"sonata/pkg/models"
)

// handleGetPlaylists returns the caller's playlists plus public ones.
func (ms *MusicServer) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	playlists, err := ms.db.GetPlaylistsForUser(user.UserID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlists", err)
		return
	}

	for i := range playlists {
		playlists[i].CoverID = playlists[i].CoverPath
	}
	ms.respondJSON(w, playlists)
}

// handleCreatePlaylist creates a playlist from a multipart form with an
// optional cover image.
func (ms *MusicServer) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	maxBytes := int64(ms.config.Media.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		ms.respondWithError(w, r, http.StatusBadRequest, "Playlist name is required", nil)
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))
	isPublic := r.FormValue("isPublic") == "true"

	var coverID string
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverID, err = ms.storeUploadedCover(coverFile, coverHeader)
		if err != nil {
			ms.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	playlistID, err := ms.db.CreatePlaylist(name, description, coverID, isPublic, user.UserID)
	if err != nil {
		ms.removeStoredCover(coverID)
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error creating playlist", err)
		return
	}

	playlist := models.Playlist{
		ID:          playlistID,
		Name:        name,
		Description: description,
		CoverID:     coverID,
		IsPublic:    isPublic,
		OwnerID:     user.UserID,
		Tracks:      []models.Track{},
	}

	ms.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"owner_id":    user.UserID,
	}).Info("Playlist created")
	ms.respondJSON(w, playlist)
}

// handleGetPlaylist returns a playlist with its tracks. Private playlists are
// visible to their owner only.
func (ms *MusicServer) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	playlistID, ok := urlParamInt(r, "playlistID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid playlist ID", nil)
		return
	}

	playlist, err := ms.db.GetPlaylistByID(playlistID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}

	if !playlist.IsPublic && playlist.OwnerID != user.UserID {
		ms.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
		return
	}

	playlist.CoverID = playlist.CoverPath
	ms.respondJSON(w, playlist)
}

// handleUpdatePlaylist updates name, description and visibility. Owner only.
func (ms *MusicServer) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, ok := ms.ownedPlaylist(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=1,max=100"`
		Description string `json:"description" validate:"max=500"`
		IsPublic    bool   `json:"isPublic"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if verrs := ms.validateStruct(req); len(verrs) > 0 {
		ms.respondWithValidationErrors(w, r, verrs)
		return
	}

	if err := ms.db.UpdatePlaylist(playlist.ID, req.Name, req.Description, req.IsPublic); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating playlist", err)
		return
	}

	updated, err := ms.db.GetPlaylistByID(playlist.ID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}
	updated.CoverID = updated.CoverPath
	ms.respondJSON(w, updated)
}

// handleDeletePlaylist removes a playlist and cleans up its cover asset
// best-effort. Owner only.
func (ms *MusicServer) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, ok := ms.ownedPlaylist(w, r)
	if !ok {
		return
	}

	coverID, err := ms.db.DeletePlaylist(playlist.ID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error deleting playlist", err)
		return
	}

	ms.removeStoredCover(coverID)
	ms.respondJSON(w, map[string]bool{"success": true})
}

// handleAddPlaylistTrack appends a track to the playlist. Adding a track
// that is already a member is a client error, not a silent no-op.
func (ms *MusicServer) handleAddPlaylistTrack(w http.ResponseWriter, r *http.Request) {
	playlist, ok := ms.ownedPlaylist(w, r)
	if !ok {
		return
	}

	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	exists, err := ms.db.TrackExists(trackID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating playlist", err)
		return
	}
	if !exists {
		ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
		return
	}

	if err := ms.db.AddTrackToPlaylist(playlist.ID, trackID); err != nil {
		if errors.Is(err, database.ErrAlreadyInPlaylist) {
			ms.respondWithError(w, r, http.StatusBadRequest, "Song is already in this playlist", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating playlist", err)
		return
	}

	ms.respondJSON(w, map[string]bool{"success": true})
}

// handleRemovePlaylistTrack removes a track from the playlist. Removing a
// track that is not a member is a client error.
func (ms *MusicServer) handleRemovePlaylistTrack(w http.ResponseWriter, r *http.Request) {
	playlist, ok := ms.ownedPlaylist(w, r)
	if !ok {
		return
	}

	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	if err := ms.db.RemoveTrackFromPlaylist(playlist.ID, trackID); err != nil {
		if errors.Is(err, database.ErrNotInPlaylist) {
			ms.respondWithError(w, r, http.StatusBadRequest, "Song is not in this playlist", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating playlist", err)
		return
	}

	ms.respondJSON(w, map[string]bool{"success": true})
}

// ownedPlaylist loads the playlist from the URL and checks the caller owns
// it, writing the error response itself when the check fails.
func (ms *MusicServer) ownedPlaylist(w http.ResponseWriter, r *http.Request) (models.Playlist, bool) {
	user := currentUser(r)
	playlistID, ok := urlParamInt(r, "playlistID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid playlist ID", nil)
		return models.Playlist{}, false
	}

	playlist, err := ms.db.GetPlaylistByID(playlistID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
			return models.Playlist{}, false
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return models.Playlist{}, false
	}

	if playlist.OwnerID != user.UserID {
		ms.respondWithError(w, r, http.StatusForbidden, "You do not own this playlist", nil)
		return models.Playlist{}, false
	}
	return playlist, true
}
