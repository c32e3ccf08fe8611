package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	twitter "github.com/anatolykoptev/go-timeline"
)

var _ twitter.SessionStore = (*Store)(nil)

// LoadSession implements twitter.SessionStore.
func (s *Store) LoadSession(ctx context.Context, username string) (twitter.Session, error) {
	var (
		sess    twitter.Session
		savedAt int64
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT auth_token, ct0, saved_at FROM sessions WHERE username = ?`, username,
	).Scan(&sess.AuthToken, &sess.CT0, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return twitter.Session{}, twitter.ErrNoSession
	}
	if err != nil {
		return twitter.Session{}, fmt.Errorf("load session %s: %w", username, err)
	}
	sess.SavedAt = time.UnixMilli(savedAt)
	return sess, nil
}

// SaveSession implements twitter.SessionStore.
func (s *Store) SaveSession(ctx context.Context, username string, sess twitter.Session) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO sessions (username, auth_token, ct0, saved_at) VALUES (?, ?, ?, ?)
ON CONFLICT(username) DO UPDATE SET
    auth_token = excluded.auth_token,
    ct0 = excluded.ct0,
    saved_at = excluded.saved_at`,
		username, sess.AuthToken, sess.CT0, sess.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", username, err)
	}
	return nil
}

// DeleteSession implements twitter.SessionStore.
func (s *Store) DeleteSession(ctx context.Context, username string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete session %s: %w", username, err)
	}
	return nil
}
