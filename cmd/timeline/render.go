package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	twitter "github.com/anatolykoptev/go-timeline"
)

// termRenderer prints the timeline to a terminal.
type termRenderer struct {
	w   io.Writer
	now func() time.Time
}

func newTermRenderer(w io.Writer) *termRenderer {
	return &termRenderer{w: w, now: time.Now}
}

func (r *termRenderer) DataSetChanged(items []twitter.Tweet) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(r.w, "── %d tweets ──\n", len(items))
	for _, t := range items {
		r.printTweet(t)
	}
}

func (r *termRenderer) ItemInserted(index int, items []twitter.Tweet) {
	if index < 0 || index >= len(items) {
		return
	}
	r.printTweet(items[index])
}

func (r *termRenderer) ScrollToTop() {}

func (r *termRenderer) RefreshDone() {
	fmt.Fprintln(r.w, "── refreshed ──")
}

func (r *termRenderer) printTweet(t twitter.Tweet) {
	body := strings.ReplaceAll(t.Body, "\n", " ")
	fmt.Fprintf(r.w, "%-4s %s (@%s) · %d\n     %s\n",
		t.RelativeAge(r.now()), t.User.Name, t.User.ScreenName, t.ID, body)
}
