package twitter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// tweetRecord is a v1.1 status object with its embedded user.
type tweetRecord struct {
	ID        int64      `json:"id"`
	FullText  string     `json:"full_text"`
	Text      string     `json:"text"`
	CreatedAt string     `json:"created_at"`
	User      userRecord `json:"user"`
}

type userRecord struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

// ParseTweets parses a JSON array of tweet records, newest first as received.
// A malformed record fails the whole batch.
func ParseTweets(body []byte) ([]Tweet, error) {
	var raw []tweetRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		if msg := apiErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("twitter API error: %s", msg)
		}
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	tweets := make([]Tweet, 0, len(raw))
	for i, r := range raw {
		t, err := r.tweet()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

// ParseTweet parses a single tweet record, e.g. the statuses/update response.
func ParseTweet(body []byte) (Tweet, error) {
	var r tweetRecord
	if err := json.Unmarshal(body, &r); err != nil {
		return Tweet{}, fmt.Errorf("unmarshal tweet: %w", err)
	}
	if r.ID == 0 {
		if msg := apiErrorMessage(body); msg != "" {
			return Tweet{}, fmt.Errorf("twitter API error: %s", msg)
		}
	}
	return r.tweet()
}

func (r tweetRecord) tweet() (Tweet, error) {
	if r.ID == 0 {
		return Tweet{}, fmt.Errorf("empty tweet id")
	}
	if r.User.ID == 0 {
		return Tweet{}, fmt.Errorf("tweet %d: empty user id", r.ID)
	}
	body := r.FullText
	if body == "" {
		body = r.Text
	}
	return Tweet{
		ID:        r.ID,
		Body:      strings.TrimSpace(body),
		CreatedAt: r.CreatedAt,
		User: User{
			ID:              r.User.ID,
			Name:            r.User.Name,
			ScreenName:      r.User.ScreenName,
			ProfileImageURL: r.User.ProfileImageURL,
		},
	}, nil
}

// apiErrorMessage returns the first error message of an {"errors":[...]} body.
func apiErrorMessage(body []byte) string {
	var errResp struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return ""
	}
	return errResp.Errors[0].Message
}
