package store

import (
	"context"
	"database/sql"
	"fmt"

	twitter "github.com/anatolykoptev/go-timeline"
)

const recentItemsQuery = `
SELECT t.id, t.body, t.created_at, u.id, u.name, u.screen_name, u.profile_image_url
FROM tweets t
JOIN users u ON u.id = t.user_id
ORDER BY t.id DESC
LIMIT ?`

// RecentItems returns up to limit cached tweets with their authors, newest first.
// A limit <= 0 means DefaultRecentLimit.
func (s *Store) RecentItems(ctx context.Context, limit int) ([]twitter.Tweet, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.conn.QueryContext(ctx, recentItemsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	// limit comes from user config; size the buffer for the usual case only.
	tweets := make([]twitter.Tweet, 0, min(limit, DefaultRecentLimit))
	for rows.Next() {
		var t twitter.Tweet
		if err := rows.Scan(&t.ID, &t.Body, &t.CreatedAt,
			&t.User.ID, &t.User.Name, &t.User.ScreenName, &t.User.ProfileImageURL); err != nil {
			return nil, fmt.Errorf("scan recent item: %w", err)
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent items: %w", err)
	}
	return tweets, nil
}

// UpsertUsers inserts or updates users keyed by id.
func (s *Store) UpsertUsers(ctx context.Context, users []twitter.User) error {
	if len(users) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO users (id, name, screen_name, profile_image_url) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    screen_name = excluded.screen_name,
    profile_image_url = excluded.profile_image_url`)
		if err != nil {
			return fmt.Errorf("prepare user upsert: %w", err)
		}
		defer stmt.Close()
		for _, u := range users {
			if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.ScreenName, u.ProfileImageURL); err != nil {
				return fmt.Errorf("upsert user %d: %w", u.ID, err)
			}
		}
		return nil
	})
}

// UpsertTweets inserts or updates tweets keyed by id. Every author must
// already be stored; a missing user fails the whole batch.
func (s *Store) UpsertTweets(ctx context.Context, tweets []twitter.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tweets (id, body, created_at, user_id) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    body = excluded.body,
    created_at = excluded.created_at,
    user_id = excluded.user_id`)
		if err != nil {
			return fmt.Errorf("prepare tweet upsert: %w", err)
		}
		defer stmt.Close()
		for _, t := range tweets {
			if _, err := stmt.ExecContext(ctx, t.ID, t.Body, t.CreatedAt, t.User.ID); err != nil {
				return fmt.Errorf("upsert tweet %d: %w", t.ID, err)
			}
		}
		return nil
	})
}
