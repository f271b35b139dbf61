package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/registration/internal/connectivity"
	"github.com/corray333/backend-labs/registration/internal/offlinequeue"
	"github.com/spf13/viper"
)

type observer interface {
	Subscribe(l connectivity.Listener) func()
	Online() bool
}

// Worker drains the offline queues whenever the upstream comes back.
type Worker struct {
	observer       observer
	queues         []*offlinequeue.Queue
	safetyInterval time.Duration
	wake           chan struct{}
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewWorker creates a replay worker for queues, drained in the given order.
func NewWorker(obs observer, queues ...*offlinequeue.Queue) *Worker {
	safetySeconds := viper.GetInt("replay.safety_interval_seconds")
	if safetySeconds == 0 {
		safetySeconds = 30
	}

	return newWorker(obs, time.Duration(safetySeconds)*time.Second, queues...)
}

func newWorker(obs observer, safetyInterval time.Duration, queues ...*offlinequeue.Queue) *Worker {
	return &Worker{
		observer:       obs,
		queues:         queues,
		safetyInterval: safetyInterval,
		wake:           make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called. Besides every Online
// event, a safety tick drains queues left non-empty while online.
func (w *Worker) Start(ctx context.Context) {
	unsubscribe := w.observer.Subscribe(func(ev connectivity.Event) {
		if !ev.Online {
			return
		}
		select {
		case w.wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(w.safetyInterval)
	defer ticker.Stop()

	slog.Info("Replay worker started", "safety_interval", w.safetyInterval, "queues", len(w.queues))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Replay worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Replay worker stopped")

			return
		case <-w.wake:
			w.drain(ctx)
		case <-ticker.C:
			if w.observer.Online() && w.pending() > 0 {
				w.drain(ctx)
			}
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *Worker) pending() int {
	n := 0
	for _, q := range w.queues {
		n += q.Len()
	}

	return n
}

func (w *Worker) drain(ctx context.Context) {
	for _, q := range w.queues {
		if q.Len() == 0 {
			continue
		}

		n, err := q.Drain(ctx)
		if err != nil {
			slog.Warn("Offline queue drain interrupted",
				"queue", q.Name(),
				"replayed", n,
				"remaining", q.Len(),
				"error", err,
			)

			continue
		}

		slog.Info("Offline queue drained", "queue", q.Name(), "replayed", n)
	}
}
