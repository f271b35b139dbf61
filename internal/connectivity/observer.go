package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corray333/backend-labs/registration/internal/metrics"
	"github.com/spf13/viper"
)

// Event is an edge in the upstream's reachability.
type Event struct {
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

// Listener is called once per edge. It runs on the goroutine that observed the
// change, must not block and must not call Report.
type Listener func(Event)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer tracks whether the upstream is reachable and notifies listeners on
// transitions only.
type Observer struct {
	client       httpDoer
	probeURL     string
	pollInterval time.Duration
	probeTimeout time.Duration

	// notifyMu orders state flips with their delivery to listeners.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	online    bool
	since     time.Time
	listeners map[uint64]Listener
	nextID    uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates an observer that starts in the online state.
// An empty probeURL disables probing; state then only changes through Report.
func New(client httpDoer, probeURL string, pollInterval, probeTimeout time.Duration) *Observer {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	metrics.UpstreamOnline.Set(1)

	return &Observer{
		client:       client,
		probeURL:     probeURL,
		pollInterval: pollInterval,
		probeTimeout: probeTimeout,
		online:       true,
		since:        time.Now(),
		listeners:    make(map[uint64]Listener),
		stopCh:       make(chan struct{}),
	}
}

// MustNewObserver creates an observer probing the configured upstream.
func MustNewObserver(client httpDoer) *Observer {
	base := strings.TrimRight(viper.GetString("upstream.base_url"), "/")
	if base == "" {
		panic("upstream.base_url is not set in config")
	}

	probeURL := ""
	if viper.GetBool("connectivity.probe_enabled") {
		probeURL = base + viper.GetString("connectivity.probe_path")
	}

	return New(
		client,
		probeURL,
		time.Duration(viper.GetInt("connectivity.poll_interval_seconds"))*time.Second,
		time.Duration(viper.GetInt("connectivity.probe_timeout_ms"))*time.Millisecond,
	)
}

// Subscribe registers l and returns the func that removes it.
func (o *Observer) Subscribe(l Listener) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = l
	o.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners, id)
			o.mu.Unlock()
		})
	}
}

// Online reports the current state.
func (o *Observer) Online() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.online
}

// Since returns when the current state began.
func (o *Observer) Since() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.since
}

// Report feeds an observation into the observer. Repeating the current state is a no-op.
func (o *Observer) Report(online bool) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if o.online == online {
		o.mu.Unlock()

		return
	}
	o.online = online
	o.since = time.Now()
	ev := Event{Online: online, At: o.since}

	ids := make([]uint64, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, o.listeners[id])
	}
	o.mu.Unlock()

	if online {
		metrics.UpstreamOnline.Set(1)
		slog.Info("Upstream became reachable")
	} else {
		metrics.UpstreamOnline.Set(0)
		slog.Warn("Upstream became unreachable")
	}

	for _, l := range listeners {
		l(ev)
	}
}

// Probe checks the upstream once and reports the result. Any HTTP response,
// whatever its status, counts as reachable.
func (o *Observer) Probe(ctx context.Context) bool {
	if o.probeURL == "" {
		return o.Online()
	}

	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.probeURL, nil)
	if err != nil {
		slog.Error("Failed to build connectivity probe", "url", o.probeURL, "error", err)

		return o.Online()
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return o.Online()
		}
		slog.Debug("Connectivity probe failed", "url", o.probeURL, "error", err)
		o.Report(false)

		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	o.Report(true)

	return true
}

// Start probes the upstream every poll interval until ctx ends or Stop is called.
func (o *Observer) Start(ctx context.Context) {
	if o.probeURL == "" {
		slog.Info("Connectivity probing disabled")

		return
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	slog.Info("Connectivity observer started", "probe_url", o.probeURL, "poll_interval", o.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Connectivity observer shutting down")

			return
		case <-o.stopCh:
			slog.Info("Connectivity observer stopped")

			return
		case <-ticker.C:
			o.Probe(ctx)
		}
	}
}

// Stop stops the probe loop.
func (o *Observer) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
}
