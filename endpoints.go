package twitter

import (
	"net/url"
	"strconv"
	"strings"
)

const twitterAPIURL = "https://api.twitter.com"

// bearerTokens is the list of known Twitter web-app bearer tokens.
var bearerTokens = []string{
	"AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA",
	"AAAAAAAAAAAAAAAAAAAAAFQODgEAAAAAVHTp76lzh3rFzcHbmHVvQxYYpTw%3DckAlMINMjmCwxUcaXbAN4XqJVdgMJaHqNOFgPMK0zN1qLqLQCF",
}

// BearerToken is the active bearer token (first in list).
var BearerToken = bearerTokens[0]

// Operation names, used for rate limiting and metrics.
const (
	opHomeTimeline = "HomeTimeline"
	opOlderThan    = "HomeTimelineOlder"
	opUpdate       = "StatusUpdate"
)

const (
	homeTimelinePath = "/1.1/statuses/home_timeline.json"
	updatePath       = "/1.1/statuses/update.json"
)

// homeTimelineURL builds the home timeline URL. A maxID of 0 requests the newest page;
// otherwise only tweets with id <= maxID are returned.
func homeTimelineURL(base string, count int, maxID int64) string {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("tweet_mode", "extended")
	if maxID > 0 {
		q.Set("max_id", strconv.FormatInt(maxID, 10))
	} else {
		q.Set("since_id", "1")
	}
	return strings.TrimRight(base, "/") + homeTimelinePath + "?" + q.Encode()
}

// updateURL returns the statuses/update endpoint and its form-encoded body.
func updateURL(base, status string) (string, []byte) {
	form := url.Values{}
	form.Set("status", status)
	form.Set("tweet_mode", "extended")
	return strings.TrimRight(base, "/") + updatePath, []byte(form.Encode())
}
