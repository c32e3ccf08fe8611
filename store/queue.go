package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mattn/go-sqlite3"

	"github.com/anatolykoptev/go-timeline/metrics"
)

// ErrQueueClosed is reported for jobs submitted after Close.
var ErrQueueClosed = errors.New("write queue closed")

// Job is one unit of store work.
type Job func(ctx context.Context) error

type queuedJob struct {
	name string
	run  Job
	done chan error
}

// Queue runs submitted write jobs one at a time, in submission order.
type Queue struct {
	jobs chan queuedJob

	mu     sync.Mutex
	closed bool

	stopped chan struct{}
}

// NewQueue starts a queue worker. size is the buffer before Submit blocks.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	q := &Queue{
		jobs:    make(chan queuedJob, size),
		stopped: make(chan struct{}),
	}
	go q.work()
	return q
}

// Submit enqueues a job. The returned channel receives the job's result and is then closed.
func (q *Queue) Submit(name string, job Job) <-chan error {
	done := make(chan error, 1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		done <- ErrQueueClosed
		close(done)
		return done
	}
	metrics.StoreQueueDepth.Inc()
	q.jobs <- queuedJob{name: name, run: job, done: done}
	return done
}

// Flush waits until every job submitted before the call has finished.
func (q *Queue) Flush(ctx context.Context) error {
	done := q.Submit("flush", func(context.Context) error { return nil })
	select {
	case err := <-done:
		if errors.Is(err, ErrQueueClosed) {
			<-q.stopped
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) work() {
	defer close(q.stopped)
	ctx := context.Background()
	for j := range q.jobs {
		metrics.StoreQueueDepth.Dec()
		err := retry.Do(
			func() error { return j.run(ctx) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(50*time.Millisecond),
			retry.RetryIf(isBusy),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			slog.Warn("store write failed", slog.String("job", j.name), slog.Any("error", err))
		}
		if j.name != "flush" {
			metrics.RecordStoreWrite(j.name, err)
		}
		j.done <- err
		close(j.done)
	}
}

// isBusy reports whether err is a transient SQLite lock conflict.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
