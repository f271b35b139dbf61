package offlinequeue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/registration/internal/metrics"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Discard for an id that is not queued.
var ErrNotFound = errors.New("queued request not found")

// ReplayFunc re-issues a deferred request. It captures everything it needs.
// When the replay fails because the upstream is still unreachable, the func
// itself is responsible for enqueueing a new entry.
type ReplayFunc func(ctx context.Context) error

// Entry is a deferred invocation held while offline.
type Entry struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	EnqueuedAt time.Time `json:"enqueuedAt"`

	replay ReplayFunc
}

// Queue is a FIFO of replay closures. It only dispatches, it never retries.
type Queue struct {
	name string

	mu      sync.Mutex
	entries []Entry

	// draining serializes Drain so an entry is never replayed twice.
	draining sync.Mutex
}

// New creates an empty queue; name labels its logs and metrics.
func New(name string) *Queue {
	metrics.QueueLength.WithLabelValues(name).Set(0)

	return &Queue{name: name}
}

func (q *Queue) Name() string {
	return q.name
}

// Enqueue appends fn and returns the entry id.
func (q *Queue) Enqueue(label string, fn ReplayFunc) string {
	e := Entry{
		ID:         uuid.NewString(),
		Label:      label,
		EnqueuedAt: time.Now(),
		replay:     fn,
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	n := len(q.entries)
	q.mu.Unlock()

	metrics.QueueLength.WithLabelValues(q.name).Set(float64(n))
	slog.Info("Request queued for replay", "queue", q.name, "entry_id", e.ID, "label", label, "queued", n)

	return e.ID
}

// Drain pops and invokes entries head first. It stops at the first replay that
// returns an error; entries behind it stay queued for the next online transition.
func (q *Queue) Drain(ctx context.Context) (int, error) {
	q.draining.Lock()
	defer q.draining.Unlock()

	replayed := 0
	for {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		e, ok := q.pop()
		if !ok {
			return replayed, nil
		}

		if err := e.replay(ctx); err != nil {
			metrics.ReplaysTotal.WithLabelValues(q.name, "false").Inc()
			slog.Warn("Replay failed, stopping drain",
				"queue", q.name,
				"entry_id", e.ID,
				"label", e.Label,
				"remaining", q.Len(),
				"error", err,
			)

			return replayed, err
		}

		metrics.ReplaysTotal.WithLabelValues(q.name, "true").Inc()
		replayed++
	}
}

func (q *Queue) pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	metrics.QueueLength.WithLabelValues(q.name).Set(float64(len(q.entries)))

	return e, true
}

// Discard removes a queued entry without replaying it.
func (q *Queue) Discard(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			metrics.QueueLength.WithLabelValues(q.name).Set(float64(len(q.entries)))

			return nil
		}
	}

	return ErrNotFound
}

// Clear drops every entry and returns how many were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries)
	q.entries = nil
	metrics.QueueLength.WithLabelValues(q.name).Set(0)

	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// Snapshot returns the queued entries in replay order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)

	return out
}
