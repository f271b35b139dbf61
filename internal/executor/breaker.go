package executor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
)

var errUpstreamStatus = errors.New("upstream 5xx")

// BreakerConfig controls when the breaker around the upstream trips.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	MinRequests         uint32
	FailureRatio        float64
	ConsecutiveFailures uint32
}

// LoadBreakerConfig reads breaker settings from viper with defaults for local runs.
func LoadBreakerConfig() BreakerConfig {
	cfg := BreakerConfig{
		MaxRequests:         viper.GetUint32("breaker.max_requests"),
		Interval:            time.Duration(viper.GetInt("breaker.interval_seconds")) * time.Second,
		Timeout:             time.Duration(viper.GetInt("breaker.timeout_seconds")) * time.Second,
		MinRequests:         viper.GetUint32("breaker.min_requests"),
		FailureRatio:        viper.GetFloat64("breaker.failure_ratio"),
		ConsecutiveFailures: viper.GetUint32("breaker.consecutive_failures"),
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 2
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.5
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	return cfg
}

// BreakerDoer wraps an HTTPDoer with a circuit breaker. 5xx responses count as
// failures for the breaker but are still handed back to the caller.
type BreakerDoer struct {
	cb     *gobreaker.CircuitBreaker
	client HTTPDoer
}

// NewBreakerDoer creates a breaker named name around client.
func NewBreakerDoer(client HTTPDoer, name string, cfg BreakerConfig) *BreakerDoer {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio {
				return true
			}

			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// The caller giving up is not a sign of an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerDoer{
		cb:     gobreaker.NewCircuitBreaker(settings),
		client: client,
	}
}

func (b *BreakerDoer) Do(req *http.Request) (*http.Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errUpstreamStatus
		}

		return resp, nil
	})

	resp, _ := result.(*http.Response)
	if errors.Is(err, errUpstreamStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ensure BreakerDoer implements HTTPDoer
var _ HTTPDoer = (*BreakerDoer)(nil)

// State returns the breaker state name: closed, half-open or open.
func (b *BreakerDoer) State() string {
	return b.cb.State().String()
}

// Counts returns the breaker's counters for the current generation.
func (b *BreakerDoer) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
