package timeline

import (
	"context"
	"fmt"
	"sync"

	twitter "github.com/anatolykoptev/go-timeline"
)

func makeTweets(ids ...int64) []twitter.Tweet {
	tweets := make([]twitter.Tweet, 0, len(ids))
	for _, id := range ids {
		uid := id%3 + 1
		tweets = append(tweets, twitter.Tweet{
			ID:        id,
			Body:      fmt.Sprintf("tweet %d", id),
			CreatedAt: "Mon Jan 02 15:04:05 +0000 2024",
			User:      twitter.User{ID: uid, ScreenName: fmt.Sprintf("user%d", uid)},
		})
	}
	return tweets
}

func idsOf(tweets []twitter.Tweet) []int64 {
	ids := make([]int64, 0, len(tweets))
	for _, t := range tweets {
		ids = append(ids, t.ID)
	}
	return ids
}

type fakeClient struct {
	mu sync.Mutex

	home    []twitter.Tweet
	homeErr error
	// homeGate, when set, is waited on before HomeTimeline returns.
	homeGate chan struct{}

	older    map[int64][]twitter.Tweet
	olderErr error
	cursors  []int64

	published  twitter.Tweet
	publishErr error
	homeCalls  int
}

func (f *fakeClient) HomeTimeline(ctx context.Context) ([]twitter.Tweet, error) {
	f.mu.Lock()
	gate := f.homeGate
	f.homeCalls++
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.home, f.homeErr
}

func (f *fakeClient) OlderThan(_ context.Context, id int64) ([]twitter.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, id)
	if f.olderErr != nil {
		return nil, f.olderErr
	}
	return f.older[id], nil
}

func (f *fakeClient) PublishTweet(_ context.Context, text string) (twitter.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return twitter.Tweet{}, f.publishErr
	}
	t := f.published
	t.Body = text
	return t, nil
}

func (f *fakeClient) Cursors() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cursors...)
}

type fakeCache struct {
	mu sync.Mutex

	recent    []twitter.Tweet
	recentErr error
	// recentGate, when set, is waited on before RecentItems returns.
	recentGate chan struct{}

	writes []string
	users  map[int64]twitter.User
	tweets map[int64]twitter.Tweet
}

func newFakeCache() *fakeCache {
	return &fakeCache{users: map[int64]twitter.User{}, tweets: map[int64]twitter.Tweet{}}
}

func (f *fakeCache) RecentItems(ctx context.Context, _ int) ([]twitter.Tweet, error) {
	if f.recentGate != nil {
		select {
		case <-f.recentGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent, f.recentErr
}

func (f *fakeCache) UpsertUsers(_ context.Context, users []twitter.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		f.writes = append(f.writes, fmt.Sprintf("user:%d", u.ID))
		f.users[u.ID] = u
	}
	return nil
}

func (f *fakeCache) UpsertTweets(_ context.Context, tweets []twitter.Tweet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tweets {
		if _, ok := f.users[t.User.ID]; !ok {
			return fmt.Errorf("tweet %d: user %d not stored", t.ID, t.User.ID)
		}
		f.writes = append(f.writes, fmt.Sprintf("tweet:%d", t.ID))
		f.tweets[t.ID] = t
	}
	return nil
}

func (f *fakeCache) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// recordingRenderer logs every signal it receives.
type recordingRenderer struct {
	mu      sync.Mutex
	events  []string
	renders [][]int64
	items   []twitter.Tweet

	onChange      func(items []twitter.Tweet)
	onRefreshDone func()
}

func (r *recordingRenderer) DataSetChanged(items []twitter.Tweet) {
	r.mu.Lock()
	r.events = append(r.events, "changed")
	r.renders = append(r.renders, idsOf(items))
	r.items = items
	hook := r.onChange
	r.mu.Unlock()
	if hook != nil {
		hook(items)
	}
}

func (r *recordingRenderer) ItemInserted(index int, items []twitter.Tweet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("inserted:%d", index))
	r.items = items
}

func (r *recordingRenderer) ScrollToTop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "scroll_top")
}

func (r *recordingRenderer) RefreshDone() {
	r.mu.Lock()
	r.events = append(r.events, "refresh_done")
	hook := r.onRefreshDone
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (r *recordingRenderer) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingRenderer) Renders() [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]int64(nil), r.renders...)
}

func (r *recordingRenderer) Shown() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return idsOf(r.items)
}
