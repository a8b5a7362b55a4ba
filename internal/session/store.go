// Package session persists the signed-in user's bearer token and account
// record between runs of the client.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"sonata/pkg/models"
)

// Session holds the authentication token and the minimal user record the
// client needs between requests.
type Session struct {
	Token string      `toml:"token"`
	User  models.User `toml:"user"`
}

// Store reads and writes the session file. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	filePath string
	session  *Session
}

// NewStore creates a session store backed by the given file, loading any
// existing session from disk.
func NewStore(filePath string) (*Store, error) {
	s := &Store{filePath: filePath}

	if _, err := os.Stat(filePath); err == nil {
		var sess Session
		if _, err := toml.DecodeFile(filePath, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse session file: %w", err)
		}
		if sess.Token != "" {
			s.session = &sess
		}
	}

	return s, nil
}

// Current returns the active session, if any.
func (s *Store) Current() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, false
	}
	copy := *s.session
	return &copy, true
}

// Token returns the bearer token, or empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// Save stores the session in memory and on disk.
func (s *Store) Save(token string, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &Session{Token: token, User: user}
	return s.writeLocked()
}

// Clear forgets the session and removes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeLocked persists the current session. Must be called with lock held.
func (s *Store) writeLocked() error {
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(s.session)
}
