package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSession is returned by a SessionStore when nothing is saved for a username.
var ErrNoSession = errors.New("no saved session")

// Session is a persisted pair of login cookies.
type Session struct {
	AuthToken string    `json:"auth_token"`
	CT0       string    `json:"ct0"`
	SavedAt   time.Time `json:"saved_at"`
}

// SessionStore persists account sessions between runs.
type SessionStore interface {
	LoadSession(ctx context.Context, username string) (Session, error)
	SaveSession(ctx context.Context, username string, s Session) error
	DeleteSession(ctx context.Context, username string) error
}

// FileSessions stores one JSON file per account.
type FileSessions struct {
	dir string
}

// NewFileSessions returns a file-backed SessionStore rooted at dir.
// An empty dir means ~/.go-timeline/sessions.
func NewFileSessions(dir string) *FileSessions {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".go-timeline", "sessions")
	}
	return &FileSessions{dir: dir}
}

func (f *FileSessions) path(username string) string {
	return filepath.Join(f.dir, username+".json")
}

// LoadSession implements SessionStore.
func (f *FileSessions) LoadSession(_ context.Context, username string) (Session, error) {
	data, err := os.ReadFile(f.path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", username, err)
	}
	return s, nil
}

// SaveSession implements SessionStore.
func (f *FileSessions) SaveSession(_ context.Context, username string, s Session) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	path := f.path(username)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

// DeleteSession implements SessionStore.
func (f *FileSessions) DeleteSession(_ context.Context, username string) error {
	err := os.Remove(f.path(username))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// saveSession persists the account's current credentials, logging failures.
func (c *Client) saveSession(acc *Account) {
	s := acc.Session()
	s.SavedAt = time.Now()
	if err := c.cfg.Sessions.SaveSession(context.Background(), acc.Username, s); err != nil {
		slog.Warn("session save failed", slog.String("user", acc.Username), slog.Any("error", err))
		return
	}
	slog.Debug("session saved", slog.String("user", acc.Username))
}

// loadSession returns a saved session if one exists and is younger than ttl.
func (c *Client) loadSession(ctx context.Context, username string) (Session, bool) {
	s, err := c.cfg.Sessions.LoadSession(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			slog.Warn("error loading session", slog.String("user", username), slog.Any("error", err))
		}
		return Session{}, false
	}
	if time.Since(s.SavedAt) > c.cfg.SessionTTL {
		slog.Debug("session expired", slog.String("user", username))
		return Session{}, false
	}
	return s, s.AuthToken != "" && s.CT0 != ""
}
