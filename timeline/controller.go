// Package timeline keeps the in-memory home timeline in step with the REST
// client and the local cache.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	twitter "github.com/anatolykoptev/go-timeline"
	"github.com/anatolykoptev/go-timeline/metrics"
	"github.com/anatolykoptev/go-timeline/store"
)

var (
	// ErrEmptyTimeline is returned by LoadMore when there is no cursor to page from.
	ErrEmptyTimeline = errors.New("timeline is empty")
	// ErrStalePage is returned when the list changed under an in-flight LoadMore.
	ErrStalePage = errors.New("older page no longer matches the timeline")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("timeline controller stopped")
)

// Client is the network side of the timeline.
type Client interface {
	HomeTimeline(ctx context.Context) ([]twitter.Tweet, error)
	OlderThan(ctx context.Context, tweetID int64) ([]twitter.Tweet, error)
	PublishTweet(ctx context.Context, text string) (twitter.Tweet, error)
}

// Cache is the local store side of the timeline.
type Cache interface {
	RecentItems(ctx context.Context, limit int) ([]twitter.Tweet, error)
	UpsertUsers(ctx context.Context, users []twitter.User) error
	UpsertTweets(ctx context.Context, tweets []twitter.Tweet) error
}

// Queue serializes cache writes.
type Queue interface {
	Submit(name string, job store.Job) <-chan error
}

// Config wires a Controller.
type Config struct {
	Client   Client
	Cache    Cache
	Queue    Queue
	Renderer Renderer

	// RecentLimit bounds the cached items shown at startup. Default: store.DefaultRecentLimit.
	RecentLimit int
}

func (c *Config) defaults() {
	if c.RecentLimit <= 0 {
		c.RecentLimit = store.DefaultRecentLimit
	}
}

// Controller owns the in-memory timeline. Every list mutation runs on the
// goroutine executing Run; network calls run on the caller's goroutine.
type Controller struct {
	cfg     Config
	adapter *Adapter

	events  chan func()
	stopped chan struct{}

	// networkApplied is set once a server timeline has replaced the list.
	// Loop-only.
	networkApplied bool
}

// New validates cfg and returns a controller. Call Run before any operation.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Client == nil:
		return nil, errors.New("timeline: nil client")
	case cfg.Cache == nil:
		return nil, errors.New("timeline: nil cache")
	case cfg.Queue == nil:
		return nil, errors.New("timeline: nil queue")
	case cfg.Renderer == nil:
		return nil, errors.New("timeline: nil renderer")
	}
	cfg.defaults()
	return &Controller{
		cfg:     cfg,
		adapter: NewAdapter(cfg.Renderer),
		events:  make(chan func()),
		stopped: make(chan struct{}),
	}, nil
}

// Run processes list mutations until ctx is done. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// apply runs fn on the loop and waits for it to finish.
func (c *Controller) apply(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(ran) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// Start performs the initial load: cached items and a network refresh run
// concurrently, and the cache is shown only if the refresh has not landed yet.
func (c *Controller) Start(ctx context.Context) error {
	var (
		wg         conc.WaitGroup
		refreshErr error
	)
	wg.Go(func() { c.showCached(ctx) })
	wg.Go(func() { refreshErr = c.Refresh(ctx) })
	wg.Wait()
	return refreshErr
}

func (c *Controller) showCached(ctx context.Context) {
	cached, err := c.cfg.Cache.RecentItems(ctx, c.cfg.RecentLimit)
	if err != nil {
		slog.Warn("cache read failed", slog.Any("error", err))
		return
	}
	if len(cached) == 0 {
		return
	}
	err = c.apply(ctx, func() {
		if c.networkApplied {
			slog.Debug("cache superseded by network", slog.Int("cached", len(cached)))
			return
		}
		c.adapter.Clear()
		c.adapter.AddAll(cached)
		metrics.TimelineSize.Set(float64(c.adapter.Len()))
	})
	if err != nil {
		slog.Debug("cache not shown", slog.Any("error", err))
	}
}

// Refresh replaces the list with the server's home timeline and queues a
// cache write. On failure the list is left as it was. RefreshDone is
// signalled either way.
func (c *Controller) Refresh(ctx context.Context) error {
	tweets, err := c.cfg.Client.HomeTimeline(ctx)
	metrics.RecordOperation("refresh", err)
	if err != nil {
		slog.Warn("refresh failed", slog.Any("error", err))
		err = fmt.Errorf("refresh: %w", err)
		if lerr := c.apply(ctx, c.cfg.Renderer.RefreshDone); lerr != nil {
			return errors.Join(err, lerr)
		}
		return err
	}

	err = c.apply(ctx, func() {
		c.networkApplied = true
		c.adapter.Clear()
		c.adapter.AddAll(tweets)
		c.cfg.Renderer.RefreshDone()
		metrics.TimelineSize.Set(float64(c.adapter.Len()))
	})
	if err != nil {
		return err
	}

	c.persist(tweets)
	slog.Info("timeline refreshed", slog.Int("count", len(tweets)))
	return nil
}

// persist queues users then tweets; the foreign key needs the authors first.
func (c *Controller) persist(tweets []twitter.Tweet) {
	if len(tweets) == 0 {
		return
	}
	users := twitter.UsersOf(tweets)
	done := c.cfg.Queue.Submit("persist_timeline", func(ctx context.Context) error {
		if err := c.cfg.Cache.UpsertUsers(ctx, users); err != nil {
			return fmt.Errorf("persist users: %w", err)
		}
		if err := c.cfg.Cache.UpsertTweets(ctx, tweets); err != nil {
			return fmt.Errorf("persist tweets: %w", err)
		}
		return nil
	})
	// A rejected job is answered before Submit returns; the worker logs the rest.
	select {
	case err := <-done:
		if errors.Is(err, store.ErrQueueClosed) {
			slog.Warn("timeline not cached, write queue closed", slog.Int("tweets", len(tweets)))
		}
	default:
	}
}

// LoadMore appends the page of tweets older than the current last item.
func (c *Controller) LoadMore(ctx context.Context) error {
	var (
		cursor int64
		ok     bool
	)
	if err := c.apply(ctx, func() {
		var last twitter.Tweet
		last, ok = c.adapter.Last()
		cursor = last.ID
	}); err != nil {
		return err
	}
	if !ok {
		metrics.RecordOperation("load_more", ErrEmptyTimeline)
		return ErrEmptyTimeline
	}

	older, err := c.cfg.Client.OlderThan(ctx, cursor)
	metrics.RecordOperation("load_more", err)
	if err != nil {
		slog.Warn("load more failed", slog.Int64("cursor", cursor), slog.Any("error", err))
		return fmt.Errorf("load more before %d: %w", cursor, err)
	}

	var stale bool
	err = c.apply(ctx, func() {
		if last, ok := c.adapter.Last(); !ok || last.ID != cursor {
			stale = true
			return
		}
		c.adapter.AddAll(older)
		metrics.TimelineSize.Set(float64(c.adapter.Len()))
	})
	if err != nil {
		return err
	}
	if stale {
		slog.Debug("dropping stale page", slog.Int64("cursor", cursor))
		return ErrStalePage
	}
	slog.Debug("older page appended", slog.Int64("cursor", cursor), slog.Int("count", len(older)))
	return nil
}

// Insert puts a freshly composed tweet at the head of the list.
func (c *Controller) Insert(ctx context.Context, t twitter.Tweet) error {
	return c.apply(ctx, func() {
		c.adapter.InsertFront(t)
		metrics.TimelineSize.Set(float64(c.adapter.Len()))
	})
}

// Compose publishes text and inserts the created tweet.
func (c *Controller) Compose(ctx context.Context, text string) (twitter.Tweet, error) {
	t, err := c.cfg.Client.PublishTweet(ctx, text)
	metrics.RecordOperation("compose", err)
	if err != nil {
		return twitter.Tweet{}, fmt.Errorf("compose: %w", err)
	}
	if err := c.Insert(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}

// Tweets returns a snapshot of the list.
func (c *Controller) Tweets(ctx context.Context) ([]twitter.Tweet, error) {
	var items []twitter.Tweet
	err := c.apply(ctx, func() { items = c.adapter.Items() })
	return items, err
}
