package executor

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// fakeClient allows scripting a sequence of responses/errors.
type fakeClient struct {
	mu    sync.Mutex
	calls int
	seq   []fakeResp
}

type fakeResp struct {
	status int
	body   string
	err    error
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls >= len(f.seq) {
		f.calls++

		return newResponse(http.StatusOK, ""), nil
	}
	r := f.seq[f.calls]
	f.calls++
	if r.err != nil {
		return nil, r.err
	}

	return newResponse(r.status, r.body), nil
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// failingClient never reaches the upstream.
type failingClient struct {
	calls atomic.Int32
	err   error
}

func (f *failingClient) Do(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)

	return nil, f.err
}

// trackingBody records whether the executor closed it.
type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)

	return nil
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
