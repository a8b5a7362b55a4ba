package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"sonata/internal/database"
	"sonata/pkg/models"
)

// handleGetSongs returns the full catalog, album-grouped when ?sort=album.
func (ms *MusicServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	var tracks []models.Track
	var err error
	if r.URL.Query().Get("sort") == "album" {
		tracks, err = ms.db.GetTracksSortedByAlbum()
	} else {
		tracks, err = ms.db.GetAllTracks()
	}
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving songs", err)
		return
	}
	ms.respondJSON(w, tracks)
}

// handleSearchSongs matches title, artist and album against the q parameter.
// An empty query returns an empty list rather than the whole catalog.
func (ms *MusicServer) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		ms.respondJSON(w, []any{})
		return
	}

	tracks, err := ms.db.SearchTracks(query)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error searching songs", err)
		return
	}
	ms.respondJSON(w, tracks)
}

func (ms *MusicServer) handleGetSong(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	track, err := ms.db.GetTrackByID(trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song", err)
		return
	}
	ms.respondJSON(w, track)
}

// handleCreateSong ingests an uploaded audio file. The audio part is
// required; title/artist/album fields and a cover image override whatever
// the file's tags carry.
func (ms *MusicServer) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(ms.config.Media.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid upload", err)
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Missing audio file", err)
		return
	}
	defer audioFile.Close()

	audioPath, err := ms.storeUploadedAudio(audioFile, audioHeader)
	if err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	track, err := ms.extractor.ExtractFromFile(audioPath)
	if err != nil {
		ms.removeStoredAudio(audioPath)
		ms.respondWithError(w, r, http.StatusBadRequest, "Could not read audio metadata", err)
		return
	}

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(r.FormValue("artist")); artist != "" {
		track.Artist = artist
	}
	if album := strings.TrimSpace(r.FormValue("album")); album != "" {
		track.Album = album
	}

	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverID, err := ms.storeUploadedCover(coverFile, coverHeader)
		if err != nil {
			ms.removeStoredAudio(audioPath)
			ms.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		track.CoverArtID = coverID
	} else if artwork, ok := ms.extractor.ExtractArtwork(audioPath); ok {
		if coverID, err := ms.storeCoverBytes(artwork); err == nil {
			track.CoverArtID = coverID
		} else {
			ms.logger.WithError(err).Warn("Failed to store embedded artwork")
		}
	}

	trackID, err := ms.db.InsertTrack(track)
	if err != nil {
		ms.removeStoredAudio(audioPath)
		ms.removeStoredCover(track.CoverArtID)
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error saving song", err)
		return
	}
	track.ID = trackID

	ms.logger.WithFields(logrus.Fields{
		"track_id": trackID,
		"title":    track.Title,
		"artist":   track.Artist,
	}).Info("Song uploaded")
	ms.respondJSON(w, track)
}

// handleDeleteSong removes a track and cleans up its assets. Asset removal
// is best-effort: a failed unlink never fails the request.
func (ms *MusicServer) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlParamInt(r, "trackID")
	if !ok {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid track ID", nil)
		return
	}

	track, err := ms.db.GetTrackByID(trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error deleting song", err)
		return
	}

	if err := ms.db.RemoveTrack(trackID); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error deleting song", err)
		return
	}

	ms.removeStoredAudio(track.AudioPath)
	ms.removeStoredCover(track.CoverArtID)

	ms.logger.WithFields(logrus.Fields{
		"track_id": trackID,
		"title":    track.Title,
	}).Info("Song deleted")
	ms.respondJSON(w, map[string]bool{"success": true})
}
