package executor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             50 * time.Millisecond,
		MinRequests:         5,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
	}
}

func TestBreakerServerErrorCountsAsFailure(t *testing.T) {
	seq := make([]fakeResp, 10)
	for i := range seq {
		seq[i] = fakeResp{status: http.StatusInternalServerError, body: "boom"}
	}
	cb := NewBreakerDoer(&fakeClient{seq: seq}, "test-status-breaker", testBreakerConfig())

	// 5xx responses still reach the caller while the breaker is closed.
	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://upstream.local", nil)
		resp, err := cb.Do(req)
		if err != nil || resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("iteration %d: expected 500 response, got resp=%v err=%v", i, resp, err)
		}
	}

	if cb.State() != gobreaker.StateOpen.String() {
		t.Fatalf("expected breaker to be open, got %s", cb.State())
	}

	req, _ := http.NewRequest(http.MethodGet, "http://upstream.local", nil)
	if _, err := cb.Do(req); err != gobreaker.ErrOpenState {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	failing := &failingClient{err: errRefused}
	cb := NewBreakerDoer(failing, "test-breaker", testBreakerConfig())

	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://upstream.local", nil)
		if _, err := cb.Do(req); err == nil {
			t.Fatalf("expected error from failing client on iteration %d", i)
		}
	}
	if failing.calls.Load() != 5 {
		t.Fatalf("expected the open breaker to short-circuit, got %d calls", failing.calls.Load())
	}

	cb.client = &fakeClient{}
	time.Sleep(80 * time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://upstream.local", nil)
	resp, err := cb.Do(req)
	if err != nil {
		t.Fatalf("expected success after recovery but got error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status code, got %d", resp.StatusCode)
	}
	if cb.State() != gobreaker.StateClosed.String() {
		t.Fatalf("expected closed breaker, got %s", cb.State())
	}
}

func TestOpenBreakerIsConnectivityLoss(t *testing.T) {
	failing := &failingClient{err: errRefused}
	cb := NewBreakerDoer(failing, "test-exec-breaker", testBreakerConfig())
	ex := New(cb, Config{Timeout: 50 * time.Millisecond, MaxAttempts: 3})

	ex.Execute(context.Background(), postDescriptor())
	o := ex.Execute(context.Background(), postDescriptor())
	if !o.ConnectivityLost() {
		t.Fatalf("expected connectivity loss, got %s", o)
	}
	if failing.calls.Load() != 5 {
		t.Fatalf("expected breaker to stop calls after 5 failures, got %d", failing.calls.Load())
	}
}
