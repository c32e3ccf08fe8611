package timeline

import (
	"slices"

	twitter "github.com/anatolykoptev/go-timeline"
)

// Renderer draws the list. All calls come from the controller's loop goroutine.
type Renderer interface {
	// DataSetChanged asks for a full re-render of items.
	DataSetChanged(items []twitter.Tweet)
	// ItemInserted reports a single item inserted at index.
	ItemInserted(index int, items []twitter.Tweet)
	ScrollToTop()
	// RefreshDone stops the refresh indicator.
	RefreshDone()
}

// Adapter mirrors the in-memory tweet list into a Renderer.
// It is not safe for concurrent use; the controller only touches it from its loop.
type Adapter struct {
	items    []twitter.Tweet
	renderer Renderer
}

// NewAdapter returns an empty adapter drawing into r.
func NewAdapter(r Renderer) *Adapter {
	return &Adapter{renderer: r}
}

// Clear empties the list.
func (a *Adapter) Clear() {
	a.items = nil
	a.renderer.DataSetChanged(a.Items())
}

// AddAll appends items to the tail and re-renders everything.
func (a *Adapter) AddAll(items []twitter.Tweet) {
	a.items = append(a.items, items...)
	a.renderer.DataSetChanged(a.Items())
}

// InsertFront puts t at index 0 and scrolls to it.
func (a *Adapter) InsertFront(t twitter.Tweet) {
	a.items = slices.Insert(a.items, 0, t)
	a.renderer.ItemInserted(0, a.Items())
	a.renderer.ScrollToTop()
}

// Items returns a copy of the list.
func (a *Adapter) Items() []twitter.Tweet {
	return slices.Clone(a.items)
}

func (a *Adapter) Len() int { return len(a.items) }

// Last returns the oldest loaded tweet.
func (a *Adapter) Last() (twitter.Tweet, bool) {
	if len(a.items) == 0 {
		return twitter.Tweet{}, false
	}
	return a.items[len(a.items)-1], true
}
