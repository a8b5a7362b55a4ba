package models

import "time"

// Playlist represents a user-created playlist
type Playlist struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverPath   string    `json:"-"`
	CoverID     string    `json:"coverId,omitempty"` // served at /covers/{id}
	IsPublic    bool      `json:"isPublic"`
	OwnerID     int       `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	TrackCount  int       `json:"trackCount"`
	Tracks      []Track   `json:"tracks,omitempty"` // populated on single-playlist fetch
}

// PlaylistTrack represents the relationship between playlists and tracks
type PlaylistTrack struct {
	PlaylistID int `json:"playlistId"`
	TrackID    int `json:"trackId"`
	Position   int `json:"position"`
}
