package server

import (
	"errors"
	"net/http"

	"sonata/internal/database"
	"sonata/pkg/models"
)

// handleGetProfile returns the user's liked and saved song lists, fetched by
// clients once at session start.
func (ms *MusicServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := currentUser(r)

	liked, err := ms.db.GetLikedTracks(claims.UserID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving liked songs", err)
		return
	}

	saved, err := ms.db.GetSavedTracks(claims.UserID)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving saved songs", err)
		return
	}

	ms.respondJSON(w, models.Profile{LikedSongs: liked, SavedSongs: saved})
}

// handleToggleLike flips the user's like membership for a track. Membership
// and the track's like counter move together in one transaction; the response
// is the authoritative post-toggle state.
func (ms *MusicServer) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	claims := currentUser(r)
	result, err := ms.db.ToggleLike(claims.UserID, trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating like state", err)
		return
	}

	ms.respondJSON(w, result)
}

// handleToggleSave flips the user's saved membership for a track.
func (ms *MusicServer) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	claims := currentUser(r)
	result, err := ms.db.ToggleSave(claims.UserID, trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error updating save state", err)
		return
	}

	ms.respondJSON(w, result)
}

// handleRecordPlay appends a play-history row. The response carries no data
// clients depend on.
func (ms *MusicServer) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	claims := currentUser(r)
	if err := ms.db.RecordPlay(claims.UserID, trackID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error recording play", err)
		return
	}

	ms.respondJSON(w, map[string]bool{"success": true})
}
