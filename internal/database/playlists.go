package database

import (
	"database/sql"
	"errors"

	"sonata/pkg/models"
)

// Playlist membership errors. Callers map these to 400 responses: duplicate
// adds and absent removals are rejected, never silently ignored.
var (
	ErrAlreadyInPlaylist = errors.New("track already in playlist")
	ErrNotInPlaylist     = errors.New("track not in playlist")
)

// CreatePlaylist inserts a new playlist row and returns its ID.
func (db *Database) CreatePlaylist(name, description, coverPath string, isPublic bool, ownerID int) (int, error) {
	result, err := db.conn.Exec(`
		INSERT INTO playlists (name, description, cover_path, is_public, owner_id)
		VALUES (?, ?, ?, ?, ?)`, name, description, coverPath, isPublic, ownerID)
	if err != nil {
		db.logger.WithError(err).WithField("name", name).Error("Failed to create playlist")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// GetPlaylistByID returns a playlist with its ordered tracks, or ErrNotFound.
func (db *Database) GetPlaylistByID(id int) (models.Playlist, error) {
	var p models.Playlist
	var description, coverPath sql.NullString
	err := db.conn.QueryRow(`
		SELECT id, name, description, cover_path, is_public, owner_id, created_at
		FROM playlists WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &description, &coverPath, &p.IsPublic, &p.OwnerID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Playlist{}, ErrNotFound
	}
	if err != nil {
		return models.Playlist{}, err
	}
	p.Description = description.String
	p.CoverPath = coverPath.String

	tracks, err := db.GetPlaylistTracks(id)
	if err != nil {
		return models.Playlist{}, err
	}
	p.Tracks = tracks
	p.TrackCount = len(tracks)
	return p, nil
}

// GetPlaylistsForUser returns playlists owned by the user plus public ones,
// with track counts but without track lists.
func (db *Database) GetPlaylistsForUser(userID int) ([]models.Playlist, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.name, p.description, p.cover_path, p.is_public, p.owner_id, p.created_at,
			(SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id) AS track_count
		FROM playlists p
		WHERE p.owner_id = ? OR p.is_public = TRUE
		ORDER BY p.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		var p models.Playlist
		var description, coverPath sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &coverPath, &p.IsPublic,
			&p.OwnerID, &p.CreatedAt, &p.TrackCount); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.CoverPath = coverPath.String
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// GetPlaylistTracks returns the playlist's tracks ordered by position.
func (db *Database) GetPlaylistTracks(playlistID int) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.track_number, t.duration, t.audio_path, t.file_size, COALESCE(t.cover_art_id, ''), t.likes_count
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// AddTrackToPlaylist appends a track at the end of the playlist. Duplicate
// membership is rejected with ErrAlreadyInPlaylist.
func (db *Database) AddTrackToPlaylist(playlistID, trackID int) error {
	var ignored int
	err := db.conn.QueryRow(
		"SELECT 1 FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?",
		playlistID, trackID).Scan(&ignored)
	if err == nil {
		return ErrAlreadyInPlaylist
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = db.conn.Exec(`
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_tracks WHERE playlist_id = ?))`,
		playlistID, trackID, playlistID)
	return err
}

// RemoveTrackFromPlaylist removes a track from the playlist. Removing a track
// that is not a member is rejected with ErrNotInPlaylist.
func (db *Database) RemoveTrackFromPlaylist(playlistID, trackID int) error {
	result, err := db.conn.Exec(
		"DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?",
		playlistID, trackID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotInPlaylist
	}
	return nil
}

// UpdatePlaylist updates playlist metadata.
func (db *Database) UpdatePlaylist(id int, name, description string, isPublic bool) error {
	result, err := db.conn.Exec(`
		UPDATE playlists SET name = ?, description = ?, is_public = ? WHERE id = ?`,
		name, description, isPublic, id)
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

// DeletePlaylist removes the playlist row and returns its cover path so the
// caller can clean up the stored asset best-effort.
func (db *Database) DeletePlaylist(id int) (string, error) {
	var coverPath sql.NullString
	err := db.conn.QueryRow("SELECT cover_path FROM playlists WHERE id = ?", id).Scan(&coverPath)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := db.conn.Exec("DELETE FROM playlists WHERE id = ?", id); err != nil {
		return "", err
	}
	return coverPath.String, nil
}
