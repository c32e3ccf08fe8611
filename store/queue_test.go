package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInOrder(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	var results []<-chan error
	for i := range 10 {
		results = append(results, q.Submit("job", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	require.NoError(t, q.Flush(context.Background()))

	for _, done := range results {
		assert.NoError(t, <-done)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestQueue_ReportsErrors(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	boom := errors.New("boom")
	calls := 0
	err := <-q.Submit("failing", func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-busy errors are not retried")
}

func TestQueue_RetriesBusy(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	calls := 0
	err := <-q.Submit("busy", func(context.Context) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestQueue_SubmitAfterClose(t *testing.T) {
	q := NewQueue(1)
	ran := make(chan struct{})
	q.Submit("slow", func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		close(ran)
		return nil
	})
	q.Close()

	select {
	case <-ran:
	default:
		t.Fatal("Close must drain queued jobs")
	}
	assert.ErrorIs(t, <-q.Submit("late", func(context.Context) error { return nil }), ErrQueueClosed)
	assert.NoError(t, q.Flush(context.Background()))
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("other")))
}
