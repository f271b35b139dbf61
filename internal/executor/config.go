package executor

import (
	"errors"
	"strings"
	"time"

	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/viper"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
)

// Backoff strategies between attempts.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Config is the retry policy applied to descriptors that do not carry their own.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	// Retryable decides whether a transport failure is retried. Server errors never reach it.
	Retryable func(error) bool
	Backoff   BackoffConfig
}

// BackoffConfig is the delay between attempts. The zero value retries immediately.
type BackoffConfig struct {
	Strategy      string
	Base          time.Duration
	Max           time.Duration
	JitterPercent uint64
}

// DefaultRetryable retries timeouts and connectivity failures.
func DefaultRetryable(err error) bool {
	return errors.Is(err, outcome.ErrTimeout) || errors.Is(err, outcome.ErrNetworkUnavailable)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retryable == nil {
		c.Retryable = DefaultRetryable
	}
	if c.Backoff.Strategy == "" {
		c.Backoff.Strategy = BackoffNone
	}
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = 100 * time.Millisecond
	}

	return c
}

// LoadConfig reads the executor policy from viper.
func LoadConfig() Config {
	return Config{
		Timeout:     time.Duration(viper.GetInt("executor.timeout_ms")) * time.Millisecond,
		MaxAttempts: viper.GetInt("executor.max_attempts"),
		Backoff: BackoffConfig{
			Strategy:      viper.GetString("executor.backoff.strategy"),
			Base:          time.Duration(viper.GetInt("executor.backoff.base_ms")) * time.Millisecond,
			Max:           time.Duration(viper.GetInt("executor.backoff.max_ms")) * time.Millisecond,
			JitterPercent: viper.GetUint64("executor.backoff.jitter_percent"),
		},
	}.withDefaults()
}

// backoff builds a fresh go-retry backoff; it is stateful, so one per Execute call.
func (b BackoffConfig) backoff(maxAttempts int) retry.Backoff {
	var bo retry.Backoff

	switch strings.ToLower(b.Strategy) {
	case BackoffConstant:
		bo = retry.NewConstant(b.Base)
	case BackoffExponential:
		bo = retry.NewExponential(b.Base)
	default:
		bo = retry.BackoffFunc(func() (time.Duration, bool) {
			return 0, false
		})
	}

	if b.Max > 0 {
		bo = retry.WithCappedDuration(b.Max, bo)
	}
	if b.JitterPercent > 0 {
		bo = retry.WithJitterPercent(b.JitterPercent, bo)
	}

	return retry.WithMaxRetries(uint64(maxAttempts-1), bo)
}
