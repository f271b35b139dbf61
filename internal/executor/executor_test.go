package executor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/registration/internal/service/models/descriptor"
	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
)

var errRefused = errors.New("dial tcp 10.0.0.1:8080: connect: connection refused")

func testConfig() Config {
	return Config{Timeout: 200 * time.Millisecond, MaxAttempts: 3}
}

func postDescriptor() descriptor.Descriptor {
	return descriptor.New(http.MethodPost, "http://upstream.local/persons/register",
		descriptor.WithBody([]byte(`{"ci":"1234567"}`)),
	)
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	fc := &fakeClient{seq: []fakeResp{
		{status: http.StatusOK, body: `{"message":"ok","transaccionId":"T1"}`},
	}}
	ex := New(fc, testConfig())

	o := ex.Execute(context.Background(), postDescriptor())
	if o.Kind != outcome.KindSuccess {
		t.Fatalf("expected success, got %s (%v)", o, o.Err)
	}
	if o.Attempts != 1 || fc.Calls() != 1 {
		t.Fatalf("expected 1 attempt, got outcome=%d calls=%d", o.Attempts, fc.Calls())
	}
	if !strings.Contains(string(o.Body), `"T1"`) {
		t.Fatalf("unexpected body %s", o.Body)
	}
}

func TestExecute_ServerErrorNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		fc := &fakeClient{seq: []fakeResp{
			{status: status, body: `{"errorType":"Rejected","message":"no"}`},
		}}
		ex := New(fc, testConfig())

		o := ex.Execute(context.Background(), postDescriptor())
		if o.Kind != outcome.KindServerError {
			t.Fatalf("status %d: expected ServerError, got %s", status, o)
		}
		if o.Status != status || fc.Calls() != 1 {
			t.Fatalf("status %d: expected one call, got status=%d calls=%d", status, o.Status, fc.Calls())
		}

		var se *outcome.ServerError
		if !errors.As(o.Err, &se) || string(se.Body) != `{"errorType":"Rejected","message":"no"}` {
			t.Fatalf("status %d: server error body not kept: %v", status, o.Err)
		}
	}
}

func TestExecute_AttemptsNeverExceedMax(t *testing.T) {
	for n := 1; n <= 5; n++ {
		fc := &failingClient{err: errRefused}
		ex := New(fc, Config{Timeout: 100 * time.Millisecond, MaxAttempts: n})

		o := ex.Execute(context.Background(), postDescriptor())
		if got := int(fc.calls.Load()); got != n {
			t.Fatalf("max attempts %d: expected %d calls, got %d", n, n, got)
		}
		if o.Kind != outcome.KindExhaustedRetries || o.Reason != outcome.KindNetworkUnavailable {
			t.Fatalf("max attempts %d: expected ExhaustedRetries(NetworkUnavailable), got %s", n, o)
		}
		if o.Attempts != n {
			t.Fatalf("max attempts %d: outcome reports %d attempts", n, o.Attempts)
		}
		if !errors.Is(o.Err, errRefused) {
			t.Fatalf("last failure not attached: %v", o.Err)
		}
	}
}

func TestExecute_RecoversAfterNetworkError(t *testing.T) {
	fc := &fakeClient{seq: []fakeResp{
		{err: errRefused},
		{status: http.StatusCreated, body: `{"message":"ok"}`},
	}}
	ex := New(fc, testConfig())

	o := ex.Execute(context.Background(), postDescriptor())
	if !o.OK() || o.Attempts != 2 || fc.Calls() != 2 {
		t.Fatalf("expected success on attempt 2, got %s calls=%d", o, fc.Calls())
	}
}

func TestExecute_TimeoutDropsLateResponse(t *testing.T) {
	var (
		calls atomic.Int32
		body  = &trackingBody{Reader: strings.NewReader(`{"message":"late"}`)}
	)
	// The doer ignores cancellation and answers after the timer fired.
	slow := doerFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		time.Sleep(60 * time.Millisecond)

		return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
	})
	ex := New(slow, Config{Timeout: 10 * time.Millisecond, MaxAttempts: 1})

	o := ex.Execute(context.Background(), postDescriptor())
	if o.Kind != outcome.KindExhaustedRetries || o.Reason != outcome.KindTimeout {
		t.Fatalf("expected ExhaustedRetries(Timeout), got %s", o)
	}
	if !errors.Is(o.Err, outcome.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", o.Err)
	}

	deadline := time.Now().Add(time.Second)
	for !body.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("late response body was never closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if o.Body != nil || o.Kind == outcome.KindSuccess {
		t.Fatalf("late response leaked into the outcome: %s", o)
	}
}

func TestExecute_TimeoutCancelsInFlightRequest(t *testing.T) {
	seen := make(chan error, 3)
	blocking := doerFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		seen <- req.Context().Err()

		return nil, req.Context().Err()
	})
	ex := New(blocking, Config{Timeout: 15 * time.Millisecond, MaxAttempts: 3})

	o := ex.Execute(context.Background(), postDescriptor())
	if o.Kind != outcome.KindExhaustedRetries || o.Reason != outcome.KindTimeout || o.Attempts != 3 {
		t.Fatalf("expected 3 timed out attempts, got %s", o)
	}

	for i := 0; i < 3; i++ {
		select {
		case err := <-seen:
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("attempt %d: expected deadline exceeded, got %v", i+1, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("attempt %d: transport never observed cancellation", i+1)
		}
	}
}

func TestExecute_PredicateStopsRetry(t *testing.T) {
	fc := &failingClient{err: errRefused}
	cfg := testConfig()
	cfg.Retryable = func(error) bool { return false }
	ex := New(fc, cfg)

	o := ex.Execute(context.Background(), postDescriptor())
	if o.Kind != outcome.KindNetworkUnavailable {
		t.Fatalf("expected bare NetworkUnavailable, got %s", o)
	}
	if fc.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", fc.calls.Load())
	}
}

func TestExecute_CanceledContext(t *testing.T) {
	fc := &failingClient{err: errRefused}
	ex := New(fc, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := ex.Execute(ctx, postDescriptor())
	if o.Kind != outcome.KindCanceled {
		t.Fatalf("expected Canceled, got %s", o)
	}
	if fc.calls.Load() != 0 {
		t.Fatalf("expected no transport calls, got %d", fc.calls.Load())
	}
}

func TestExecute_DescriptorOverridesPolicy(t *testing.T) {
	fc := &failingClient{err: errRefused}
	ex := New(fc, testConfig())

	d := descriptor.New(http.MethodGet, "http://upstream.local/persons", descriptor.WithMaxAttempts(5))
	o := ex.Execute(context.Background(), d)
	if fc.calls.Load() != 5 || o.Attempts != 5 {
		t.Fatalf("expected 5 attempts, got calls=%d outcome=%s", fc.calls.Load(), o)
	}
}

func TestExecute_ConstantBackoffWaitsBetweenAttempts(t *testing.T) {
	fc := &failingClient{err: errRefused}
	ex := New(fc, Config{
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 3,
		Backoff:     BackoffConfig{Strategy: BackoffConstant, Base: 20 * time.Millisecond},
	})

	start := time.Now()
	ex.Execute(context.Background(), postDescriptor())
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected two 20ms waits, finished in %v", elapsed)
	}
}

func TestReconfigure(t *testing.T) {
	fc := &failingClient{err: errRefused}
	ex := New(fc, testConfig())
	ex.Reconfigure(Config{Timeout: 50 * time.Millisecond, MaxAttempts: 1})

	o := ex.Execute(context.Background(), postDescriptor())
	if fc.calls.Load() != 1 || o.Attempts != 1 {
		t.Fatalf("expected the new policy to apply, got %d calls", fc.calls.Load())
	}
	if ex.Config().Backoff.Strategy != BackoffNone {
		t.Fatalf("expected default backoff strategy, got %q", ex.Config().Backoff.Strategy)
	}
}

func TestExecute_RealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(descriptor.HeaderIdempotencyKey) != "sub-1" {
			w.WriteHeader(http.StatusBadRequest)

			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	ex := New(srv.Client(), testConfig())
	d := descriptor.New(http.MethodPost, srv.URL+"/persons/register",
		descriptor.WithHeader(descriptor.HeaderIdempotencyKey, "sub-1"),
	)

	o := ex.Execute(context.Background(), d)
	if !o.OK() || o.Status != http.StatusCreated {
		t.Fatalf("expected 201 success, got %s (%v)", o, o.Err)
	}
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
