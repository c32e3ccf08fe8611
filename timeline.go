package twitter

import (
	"context"
	"fmt"
	"log/slog"
)

// HomeTimeline fetches the newest page of the authenticated home timeline, newest first.
func (c *Client) HomeTimeline(ctx context.Context) ([]Tweet, error) {
	return c.fetchTimeline(ctx, opHomeTimeline, homeTimelineURL(c.cfg.APIBase, c.cfg.PageSize, 0))
}

// OlderThan fetches the page of home timeline tweets strictly older than tweetID.
func (c *Client) OlderThan(ctx context.Context, tweetID int64) ([]Tweet, error) {
	if tweetID <= 1 {
		return nil, &NetworkError{Endpoint: opOlderThan, Err: fmt.Errorf("invalid pagination cursor %d", tweetID)}
	}
	// max_id is inclusive on the server side.
	return c.fetchTimeline(ctx, opOlderThan, homeTimelineURL(c.cfg.APIBase, c.cfg.PageSize, tweetID-1))
}

func (c *Client) fetchTimeline(ctx context.Context, endpoint, url string) ([]Tweet, error) {
	body, err := c.do(ctx, endpoint, "GET", url, contentTypeJSON, nil)
	if err != nil {
		return nil, err
	}
	tweets, err := ParseTweets(body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, StatusCode: 200, Err: err}
	}
	slog.Debug("timeline fetched", slog.String("endpoint", endpoint), slog.Int("count", len(tweets)))
	return tweets, nil
}

// PublishTweet posts a status update and returns the created tweet.
func (c *Client) PublishTweet(ctx context.Context, text string) (Tweet, error) {
	if err := ValidateStatus(text); err != nil {
		return Tweet{}, err
	}
	url, form := updateURL(c.cfg.APIBase, text)
	body, err := c.do(ctx, opUpdate, "POST", url, contentTypeForm, form)
	if err != nil {
		return Tweet{}, err
	}
	tweet, err := ParseTweet(body)
	if err != nil {
		return Tweet{}, &NetworkError{Endpoint: opUpdate, StatusCode: 200, Err: err}
	}
	slog.Info("tweet published", slog.Int64("id", tweet.ID))
	return tweet, nil
}
