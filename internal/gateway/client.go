// Package gateway is the single configured HTTP client the client-side
// components call through. It wraps the server base URL and injects the
// bearer token from the session store on every request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sonata/internal/session"
	"sonata/pkg/models"
)

// APIError is a non-2xx response decoded from the server's uniform
// {success:false, message} envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404 APIError.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client is the remote data gateway.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Store
}

// NewClient creates a gateway for the given server base URL.
func NewClient(baseURL string, sessions *session.Store) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		sessions: sessions,
	}
}

// Register creates an account and stores the returned session.
func (c *Client) Register(ctx context.Context, name, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	if err := c.sessions.Save(resp.Token, resp.User); err != nil {
		return models.AuthResponse{}, fmt.Errorf("failed to persist session: %w", err)
	}
	return resp, nil
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	if err := c.sessions.Save(resp.Token, resp.User); err != nil {
		return models.AuthResponse{}, fmt.Errorf("failed to persist session: %w", err)
	}
	return resp, nil
}

// Logout clears the stored session.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// GetProfile fetches the signed-in user's liked and saved song lists.
func (c *Client) GetProfile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/user/profile", nil, &profile)
	return profile, err
}

// ToggleLike flips the like membership for a track server-side and returns
// the authoritative post-toggle state.
func (c *Client) ToggleLike(ctx context.Context, trackID int) (models.LikeResult, error) {
	var result models.LikeResult
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/user/songs/%d/like", trackID), nil, &result)
	return result, err
}

// ToggleSave flips the saved membership for a track server-side.
func (c *Client) ToggleSave(ctx context.Context, trackID int) (models.SaveResult, error) {
	var result models.SaveResult
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/user/songs/%d/save", trackID), nil, &result)
	return result, err
}

// RecordPlay reports a play for history tracking. The response carries no
// data the client needs; callers may ignore the error.
func (c *Client) RecordPlay(ctx context.Context, trackID int) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/user/songs/%d/play", trackID), nil, nil)
}

// GetSongs fetches the catalog, optionally sorted by album.
func (c *Client) GetSongs(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	err := c.doJSON(ctx, http.MethodGet, "/api/user/songs?sort=album", nil, &tracks)
	return tracks, err
}

// SearchSongs fetches catalog tracks matching the query.
func (c *Client) SearchSongs(ctx context.Context, query string) ([]models.Track, error) {
	var tracks []models.Track
	path := "/api/user/songs/search?q=" + url.QueryEscape(query)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &tracks)
	return tracks, err
}

// GetSong fetches a single catalog track.
func (c *Client) GetSong(ctx context.Context, trackID int) (models.Track, error) {
	var track models.Track
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/songs/%d", trackID), nil, &track)
	return track, err
}

// GetPlaylists fetches the user's playlists (own plus public).
func (c *Client) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := c.doJSON(ctx, http.MethodGet, "/api/user/playlists", nil, &playlists)
	return playlists, err
}

// GetPlaylist fetches one playlist with its ordered track list.
func (c *Client) GetPlaylist(ctx context.Context, playlistID int) (models.Playlist, error) {
	var playlist models.Playlist
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/user/playlists/%d", playlistID), nil, &playlist)
	return playlist, err
}

// CreatePlaylist sends multipart form data (name, description, visibility,
// optional cover image) and returns the created playlist.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, isPublic bool, coverName string, cover io.Reader) (models.Playlist, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_ = writer.WriteField("name", name)
	_ = writer.WriteField("description", description)
	_ = writer.WriteField("isPublic", strconv.FormatBool(isPublic))
	if cover != nil {
		part, err := writer.CreateFormFile("coverImage", coverName)
		if err != nil {
			return models.Playlist{}, err
		}
		if _, err := io.Copy(part, cover); err != nil {
			return models.Playlist{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return models.Playlist{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user/playlists", &buf)
	if err != nil {
		return models.Playlist{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var playlist models.Playlist
	if err := c.send(req, &playlist); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

// UpdatePlaylist updates playlist metadata.
func (c *Client) UpdatePlaylist(ctx context.Context, playlistID int, name, description string, isPublic bool) error {
	body := map[string]interface{}{"name": name, "description": description, "isPublic": isPublic}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/user/playlists/%d", playlistID), body, nil)
}

// DeletePlaylist deletes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, playlistID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/user/playlists/%d", playlistID), nil, nil)
}

// AddPlaylistTrack adds a track to a playlist. Duplicate adds are rejected
// by the server with a 400.
func (c *Client) AddPlaylistTrack(ctx context.Context, playlistID, trackID int) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/user/playlists/%d/songs/%d", playlistID, trackID), nil, nil)
}

// RemovePlaylistTrack removes a track from a playlist.
func (c *Client) RemovePlaylistTrack(ctx context.Context, playlistID, trackID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/user/playlists/%d/songs/%d", playlistID, trackID), nil, nil)
}

// StreamURL returns the playable audio URL for a track.
func (c *Client) StreamURL(track models.Track) string {
	return fmt.Sprintf("%s/stream/%d", c.baseURL, track.ID)
}

// CoverURL returns the cover art URL for a stored cover ID.
func (c *Client) CoverURL(coverID string) string {
	return c.baseURL + "/covers/" + coverID
}

// doJSON performs a JSON request against the API, decoding a 2xx response
// into out (when non-nil) and non-2xx responses into an APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// send adds the bearer header, executes the request and decodes the response.
func (c *Client) send(req *http.Request, out interface{}) error {
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Message == "" {
			envelope.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
