package database

import (
	"database/sql"
	"errors"
	"fmt"

	"sonata/pkg/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

const trackColumns = `id, title, artist, album, track_number, duration, audio_path, file_size, COALESCE(cover_art_id, ''), likes_count`

// scanTrackRows scans a result set of track columns into model structs.
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	tracks := make([]models.Track, 0)
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.TrackNumber,
			&t.Duration, &t.AudioPath, &t.FileSize, &t.CoverArtID, &t.LikesCount); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// InsertTrack inserts a new track or updates an existing track (matched by
// audio_path) returning the track's database ID.
func (db *Database) InsertTrack(track models.Track) (int, error) {
	var existingID int
	err := db.conn.QueryRow("SELECT id FROM tracks WHERE audio_path = ?", track.AudioPath).Scan(&existingID)
	if err == nil {
		_, err = db.conn.Exec(`
			UPDATE tracks SET title = ?, artist = ?, album = ?, track_number = ?, duration = ?, file_size = ?, cover_art_id = ?
			WHERE id = ?`,
			track.Title, track.Artist, track.Album, track.TrackNumber,
			track.Duration, track.FileSize, track.CoverArtID, existingID)
		if err != nil {
			db.logger.WithError(err).WithField("track_id", existingID).Error("Failed to update existing track")
		}
		return existingID, err
	}

	result, err := db.conn.Exec(`
		INSERT INTO tracks (title, artist, album, track_number, duration, audio_path, file_size, cover_art_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.Title, track.Artist, track.Album, track.TrackNumber,
		track.Duration, track.AudioPath, track.FileSize, track.CoverArtID)
	if err != nil {
		db.logger.WithError(err).WithField("audio_path", track.AudioPath).Error("Failed to insert new track")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

// GetAllTracks returns all tracks ordered by artist/album/track/title.
func (db *Database) GetAllTracks() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT ` + trackColumns + `
		FROM tracks
		ORDER BY artist, album, track_number, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTracksSortedByAlbum returns all tracks grouped by album name.
func (db *Database) GetTracksSortedByAlbum() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT ` + trackColumns + `
		FROM tracks
		ORDER BY album, track_number, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTrackByID returns a single track or ErrNotFound.
func (db *Database) GetTrackByID(id int) (models.Track, error) {
	var t models.Track
	err := db.getTrackByIDStmt.QueryRow(id).Scan(&t.ID, &t.Title, &t.Artist, &t.Album,
		&t.TrackNumber, &t.Duration, &t.AudioPath, &t.FileSize, &t.CoverArtID, &t.LikesCount)
	if err == sql.ErrNoRows {
		return models.Track{}, ErrNotFound
	}
	if err != nil {
		return models.Track{}, err
	}
	return t, nil
}

// TrackExists reports whether a track row with the given ID exists.
func (db *Database) TrackExists(id int) (bool, error) {
	var count int
	if err := db.trackExistsStmt.QueryRow(id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchTracks returns tracks whose title, artist or album match the query.
func (db *Database) SearchTracks(query string) ([]models.Track, error) {
	pattern := "%" + query + "%"
	rows, err := db.searchTracksStmt.Query(pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// RemoveTrack deletes a track row. Membership rows and playlist entries are
// removed by the cascading foreign keys.
func (db *Database) RemoveTrack(id int) error {
	result, err := db.conn.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveTrackByPath deletes a track row matched by its audio path. Used by
// the media watcher when a file disappears from disk.
func (db *Database) RemoveTrackByPath(audioPath string) error {
	_, err := db.conn.Exec("DELETE FROM tracks WHERE audio_path = ?", audioPath)
	return err
}

// RecordPlay appends a play-history row for the user.
func (db *Database) RecordPlay(userID, trackID int) error {
	exists, err := db.TrackExists(trackID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = db.conn.Exec(
		"INSERT INTO play_history (user_id, track_id) VALUES (?, ?)", userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}
