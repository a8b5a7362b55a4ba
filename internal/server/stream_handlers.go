package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"sonata/internal/database"
	"sonata/internal/metadata"
)

// handleStreamTrack serves a track's audio file with range support, so
// clients can seek without downloading the whole file.
func (ms *MusicServer) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
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
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving track", err)
		return
	}

	file, err := os.Open(track.AudioPath)
	if err != nil {
		ms.respondWithError(w, r, http.StatusNotFound, "Audio file not found", err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error reading audio file", err)
		return
	}

	w.Header().Set("Content-Type", ms.extractor.GetContentType(track.AudioPath))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, filepath.Base(track.AudioPath), info.ModTime(), file)
}

// handleGetCover serves cover art, keeping hot images in the in-memory cache.
func (ms *MusicServer) handleGetCover(w http.ResponseWriter, r *http.Request) {
	coverID := filepath.Base(chi.URLParam(r, "coverID"))
	if coverID == "" || coverID == "." || coverID == string(filepath.Separator) {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid cover ID", nil)
		return
	}

	data, ok := ms.covers.Get(coverID)
	if !ok {
		path := filepath.Join(ms.config.Media.CoverDir, coverID)
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			ms.respondWithError(w, r, http.StatusNotFound, "Cover not found", nil)
			return
		}
		ms.covers.Set(coverID, data)
	}

	w.Header().Set("Content-Type", metadata.ImageMimeType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		ms.logger.WithError(err).Debug("Cover write aborted")
	}
}
