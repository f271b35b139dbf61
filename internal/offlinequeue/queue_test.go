package offlinequeue

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestDrainInvokesInFIFOOrder(t *testing.T) {
	q := New("test-fifo")

	var got []string
	for _, name := range []string{"A", "B", "C"} {
		q.Enqueue(name, func(ctx context.Context) error {
			got = append(got, name)

			return nil
		})
	}

	n, err := q.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 3 || q.Len() != 0 {
		t.Fatalf("expected 3 replayed and empty queue, got %d replayed, %d left", n, q.Len())
	}
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("expected A, B, C, got %v", got)
	}
}

func TestDrainStopsOnFirstFailure(t *testing.T) {
	q := New("test-stop")
	errStillOffline := errors.New("still offline")

	var got []string
	q.Enqueue("A", func(ctx context.Context) error {
		got = append(got, "A")

		return nil
	})
	q.Enqueue("B", func(ctx context.Context) error {
		got = append(got, "B")

		return errStillOffline
	})
	q.Enqueue("C", func(ctx context.Context) error {
		got = append(got, "C")

		return nil
	})

	n, err := q.Drain(context.Background())
	if !errors.Is(err, errStillOffline) {
		t.Fatalf("expected drain error, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 replayed, got %d", n)
	}
	if len(got) != 2 {
		t.Fatalf("C should not run after B failed, got %v", got)
	}
	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].Label != "C" {
		t.Fatalf("expected only C to remain queued, got %+v", snap)
	}
}

func TestReplayReenqueuesItself(t *testing.T) {
	q := New("test-reenqueue")
	online := false
	replays := 0

	var replay ReplayFunc
	replay = func(ctx context.Context) error {
		replays++
		if !online {
			q.Enqueue("form", replay)

			return errors.New("offline")
		}

		return nil
	}
	q.Enqueue("form", replay)

	if _, err := q.Drain(context.Background()); err == nil {
		t.Fatalf("expected failing drain while offline")
	}
	if q.Len() != 1 {
		t.Fatalf("expected the entry to requeue itself once, got %d entries", q.Len())
	}

	online = true
	n, err := q.Drain(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one successful replay, got n=%d err=%v", n, err)
	}
	if replays != 2 || q.Len() != 0 {
		t.Fatalf("expected 2 replays and empty queue, got %d replays, %d left", replays, q.Len())
	}
}

func TestDrainHonoursContext(t *testing.T) {
	q := New("test-ctx")
	q.Enqueue("A", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Drain(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("entry must stay queued when drain is cancelled")
	}
}

func TestDiscardAndClear(t *testing.T) {
	q := New("test-discard")
	noop := func(ctx context.Context) error { return nil }

	a := q.Enqueue("A", noop)
	q.Enqueue("B", noop)
	q.Enqueue("C", noop)

	if err := q.Discard(a); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := q.Discard(a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if snap := q.Snapshot(); len(snap) != 2 || snap[0].Label != "B" {
		t.Fatalf("unexpected queue after discard: %+v", snap)
	}
	if n := q.Clear(); n != 2 || q.Len() != 0 {
		t.Fatalf("expected 2 cleared, got %d (len %d)", n, q.Len())
	}
}

func TestConcurrentEnqueueAndDrain(t *testing.T) {
	q := New("test-concurrent")

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue("x", func(ctx context.Context) error {
				mu.Lock()
				count++
				mu.Unlock()

				return nil
			})
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Drain(context.Background())
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Fatalf("expected every entry replayed exactly once, got %d", count)
	}
}
