package models

// Track represents a music track in the catalog
type Track struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	TrackNumber int    `json:"trackNumber"`
	Duration    int    `json:"duration"` // in seconds
	AudioPath   string `json:"-"`        // don't expose file path to client
	FileSize    int64  `json:"fileSize"`
	CoverArtID  string `json:"coverArtId,omitempty"` // served at /covers/{id}
	LikesCount  int    `json:"likesCount"`
}

// LikeResult is the server's authoritative answer to a like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// SaveResult is the server's authoritative answer to a save toggle.
type SaveResult struct {
	Saved bool `json:"saved"`
}

// Profile bundles the per-user library collections returned by /api/user/profile.
type Profile struct {
	LikedSongs []Track `json:"likedSongs"`
	SavedSongs []Track `json:"savedSongs"`
}
