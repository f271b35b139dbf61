package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/corray333/backend-labs/registration/internal/metrics"
	"github.com/corray333/backend-labs/registration/internal/service/models/descriptor"
	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPDoer is the transport the executor drives.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor runs descriptors with a per-attempt timeout and a bounded retry loop.
// Attempts of one Execute call are strictly sequential.
type Executor struct {
	client HTTPDoer

	mu  sync.RWMutex
	cfg Config
}

// New creates an executor with an explicit policy.
func New(client HTTPDoer, cfg Config) *Executor {
	return &Executor{
		client: client,
		cfg:    cfg.withDefaults(),
	}
}

// MustNewExecutor creates an executor with the policy from viper.
func MustNewExecutor(client HTTPDoer) *Executor {
	if client == nil {
		panic("executor: nil http client")
	}

	return New(client, LoadConfig())
}

// Config returns the current policy.
func (e *Executor) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.cfg
}

// Reconfigure swaps the policy. Calls already running keep the policy they started with.
func (e *Executor) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	slog.Info("Executor policy updated",
		"timeout", cfg.Timeout,
		"max_attempts", cfg.MaxAttempts,
		"backoff", cfg.Backoff.Strategy,
	)
}

// Execute runs d until it succeeds, the upstream rejects it, or the attempts run out.
func (e *Executor) Execute(ctx context.Context, d descriptor.Descriptor) outcome.Outcome {
	cfg := e.Config()

	timeout := d.Timeout()
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	maxAttempts := d.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = cfg.MaxAttempts
	}

	ctx, span := otel.Tracer("executor").Start(ctx, "Executor.Execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", d.Method()),
			attribute.String("http.url", d.URL()),
			attribute.Int("retry.max_attempts", maxAttempts),
		),
	)
	defer span.End()

	var (
		last      outcome.Outcome
		attempts  int
		retryable bool
	)

	_ = retry.Do(ctx, cfg.Backoff.backoff(maxAttempts), func(ctx context.Context) error {
		attempts++
		last = e.attempt(ctx, d, timeout, attempts)
		retryable = false

		switch last.Kind {
		case outcome.KindSuccess, outcome.KindServerError:
			return nil
		case outcome.KindCanceled:
			return last.Err
		}

		if !cfg.Retryable(last.Err) {
			return last.Err
		}
		retryable = true
		if attempts < maxAttempts {
			slog.Warn("Upstream attempt failed, retrying",
				"url", d.URL(),
				"attempt", attempts,
				"max_attempts", maxAttempts,
				"error", last.Err,
			)
		}

		return retry.RetryableError(last.Err)
	})

	var result outcome.Outcome
	switch {
	case last.Kind == outcome.KindSuccess || last.Kind == outcome.KindServerError:
		result = last
	case ctx.Err() != nil:
		result = outcome.Failure(fmt.Errorf("%w: %w", outcome.ErrCanceled, ctx.Err()), attempts)
	case retryable:
		result = outcome.Exhausted(last)
	default:
		result = last
	}

	metrics.OutcomesTotal.WithLabelValues(result.Kind.String()).Inc()
	span.SetAttributes(
		attribute.String("outcome", result.Kind.String()),
		attribute.Int("retry.attempts", result.Attempts),
	)
	if !result.OK() {
		span.SetStatus(codes.Error, result.Kind.String())
	}

	return result
}

type attemptResult struct {
	status int
	header http.Header
	body   []byte
	err    error
}

// attempt races one transport call against the timeout. A result delivered after the
// timer fired lands in the buffered channel and is dropped.
func (e *Executor) attempt(
	ctx context.Context,
	d descriptor.Descriptor,
	timeout time.Duration,
	n int,
) outcome.Outcome {
	ctx, span := otel.Tracer("executor").Start(ctx, "Executor.attempt",
		trace.WithAttributes(attribute.Int("retry.attempt", n)),
	)
	defer span.End()

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := d.NewRequest(actx)
	if err != nil {
		return outcome.Outcome{Attempts: n, Err: fmt.Errorf("failed to build request: %w", err)}
	}

	start := time.Now()
	results := make(chan attemptResult, 1)

	go func() {
		resp, err := e.client.Do(req)
		if err != nil {
			results <- attemptResult{err: err}

			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		results <- attemptResult{status: resp.StatusCode, header: resp.Header, body: body, err: err}
	}()

	var o outcome.Outcome
	select {
	case r := <-results:
		switch {
		case r.err != nil:
			o = transportFailure(ctx, actx, r.err, timeout, n)
		case r.status < 200 || r.status > 299:
			o = outcome.Server(r.status, r.header, r.body, n)
		default:
			o = outcome.Success(r.status, r.header, r.body, n)
		}
	case <-actx.Done():
		o = transportFailure(ctx, actx, actx.Err(), timeout, n)
	}

	metrics.AttemptDurationSeconds.WithLabelValues(d.Method()).Observe(time.Since(start).Seconds())
	metrics.AttemptsTotal.WithLabelValues(attemptLabel(o.Kind)).Inc()
	span.SetAttributes(attribute.String("outcome", o.Kind.String()))

	return o
}

func transportFailure(
	parent, actx context.Context,
	err error,
	timeout time.Duration,
	n int,
) outcome.Outcome {
	switch {
	case parent.Err() != nil:
		return outcome.Failure(fmt.Errorf("%w: %w", outcome.ErrCanceled, parent.Err()), n)
	case errors.Is(actx.Err(), context.DeadlineExceeded):
		return outcome.Failure(fmt.Errorf("attempt %d: %w after %s", n, outcome.ErrTimeout, timeout), n)
	default:
		return outcome.Failure(&outcome.NetworkError{Err: err}, n)
	}
}

func attemptLabel(k outcome.Kind) string {
	switch k {
	case outcome.KindSuccess:
		return "ok"
	case outcome.KindServerError:
		return "server_error"
	case outcome.KindTimeout:
		return "timeout"
	case outcome.KindNetworkUnavailable:
		return "network"
	case outcome.KindCanceled:
		return "canceled"
	default:
		return "invalid"
	}
}
