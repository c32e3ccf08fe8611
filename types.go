package twitter

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// createdAtLayout is the timestamp layout used by the v1.1 REST API.
const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// MaxStatusLength is the maximum number of characters in a status update.
const MaxStatusLength = 280

var (
	ErrEmptyStatus   = errors.New("status text is empty")
	ErrStatusTooLong = fmt.Errorf("status text exceeds %d characters", MaxStatusLength)
)

// User represents the author of a tweet.
type User struct {
	ID              int64
	Name            string
	ScreenName      string
	ProfileImageURL string
}

// Tweet represents a single tweet on the home timeline.
type Tweet struct {
	ID        int64
	Body      string
	CreatedAt string // display timestamp as returned by the server
	User      User
}

// Time parses CreatedAt.
func (t Tweet) Time() (time.Time, error) {
	return time.Parse(createdAtLayout, t.CreatedAt)
}

// RelativeAge formats the tweet age relative to now, e.g. "45s", "5m", "3h", "2d".
// Returns CreatedAt unchanged if it cannot be parsed.
func (t Tweet) RelativeAge(now time.Time) string {
	ts, err := t.Time()
	if err != nil {
		return t.CreatedAt
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", max(0, int(d.Seconds())))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	return ts.Format("Jan 2")
}

// UsersOf returns the distinct authors of tweets in first-seen order.
func UsersOf(tweets []Tweet) []User {
	seen := make(map[int64]bool, len(tweets))
	users := make([]User, 0, len(tweets))
	for _, t := range tweets {
		if seen[t.User.ID] {
			continue
		}
		seen[t.User.ID] = true
		users = append(users, t.User)
	}
	return users
}

// ValidateStatus checks a status update before it is sent.
func ValidateStatus(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyStatus
	}
	if utf8.RuneCountInString(text) > MaxStatusLength {
		return ErrStatusTooLong
	}
	return nil
}
