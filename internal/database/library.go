package database

import (
	"database/sql"
	"fmt"

	"sonata/pkg/models"
)

// ToggleLike flips the user's like membership for a track. The membership row
// and the track's likes_count are updated in a single transaction so the two
// writes cannot diverge. Returns the post-toggle state, which is authoritative
// for clients.
func (db *Database) ToggleLike(userID, trackID int) (models.LikeResult, error) {
	exists, err := db.TrackExists(trackID)
	if err != nil {
		return models.LikeResult{}, err
	}
	if !exists {
		return models.LikeResult{}, ErrNotFound
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var liked bool
	var ignored int
	err = tx.QueryRow(
		"SELECT 1 FROM user_likes WHERE user_id = ? AND track_id = ?", userID, trackID).Scan(&ignored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.Exec(
			"INSERT INTO user_likes (user_id, track_id) VALUES (?, ?)", userID, trackID); err != nil {
			return models.LikeResult{}, err
		}
		if _, err := tx.Exec(
			"UPDATE tracks SET likes_count = likes_count + 1 WHERE id = ?", trackID); err != nil {
			return models.LikeResult{}, err
		}
		liked = true
	case err != nil:
		return models.LikeResult{}, err
	default:
		if _, err := tx.Exec(
			"DELETE FROM user_likes WHERE user_id = ? AND track_id = ?", userID, trackID); err != nil {
			return models.LikeResult{}, err
		}
		if _, err := tx.Exec(
			"UPDATE tracks SET likes_count = MAX(likes_count - 1, 0) WHERE id = ?", trackID); err != nil {
			return models.LikeResult{}, err
		}
		liked = false
	}

	var count int
	if err := tx.QueryRow("SELECT likes_count FROM tracks WHERE id = ?", trackID).Scan(&count); err != nil {
		return models.LikeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.LikeResult{}, fmt.Errorf("failed to commit like toggle: %w", err)
	}

	return models.LikeResult{Liked: liked, LikesCount: count}, nil
}

// ToggleSave flips the user's saved membership for a track. There is no
// associated counter, so a single statement pair suffices.
func (db *Database) ToggleSave(userID, trackID int) (models.SaveResult, error) {
	exists, err := db.TrackExists(trackID)
	if err != nil {
		return models.SaveResult{}, err
	}
	if !exists {
		return models.SaveResult{}, ErrNotFound
	}

	result, err := db.conn.Exec(
		"DELETE FROM user_saves WHERE user_id = ? AND track_id = ?", userID, trackID)
	if err != nil {
		return models.SaveResult{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.SaveResult{}, err
	}
	if affected > 0 {
		return models.SaveResult{Saved: false}, nil
	}

	if _, err := db.conn.Exec(
		"INSERT INTO user_saves (user_id, track_id) VALUES (?, ?)", userID, trackID); err != nil {
		return models.SaveResult{}, err
	}
	return models.SaveResult{Saved: true}, nil
}

// GetLikedTracks returns the user's liked tracks in like order (newest last).
func (db *Database) GetLikedTracks(userID int) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.track_number, t.duration, t.audio_path, t.file_size, COALESCE(t.cover_art_id, ''), t.likes_count
		FROM tracks t
		JOIN user_likes ul ON ul.track_id = t.id
		WHERE ul.user_id = ?
		ORDER BY ul.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetSavedTracks returns the user's saved tracks in save order (newest last).
func (db *Database) GetSavedTracks(userID int) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.track_number, t.duration, t.audio_path, t.file_size, COALESCE(t.cover_art_id, ''), t.likes_count
		FROM tracks t
		JOIN user_saves us ON us.track_id = t.id
		WHERE us.user_id = ?
		ORDER BY us.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}
