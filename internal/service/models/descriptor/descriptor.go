package descriptor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Descriptor is the immutable description of one upstream request.
// Every accessor hands out a copy, so a descriptor can be replayed safely.
type Descriptor struct {
	method      string
	url         string
	header      http.Header
	body        []byte
	timeout     time.Duration
	maxAttempts int
}

// option is a function that configures a Descriptor at construction.
type option func(*Descriptor)

// New creates a descriptor for method and url.
func New(method, url string, opts ...option) Descriptor {
	d := Descriptor{
		method: method,
		url:    url,
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(&d)
	}

	return d
}

// WithHeader adds a request header.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHeader(key, value string) option {
	return func(d *Descriptor) {
		d.header.Add(key, value)
	}
}

// WithHeaders adds every header of h.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHeaders(h map[string]string) option {
	return func(d *Descriptor) {
		for k, v := range h {
			d.header.Set(k, v)
		}
	}
}

// WithBody sets the request body. The slice is copied.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBody(body []byte) option {
	return func(d *Descriptor) {
		d.body = bytes.Clone(body)
	}
}

// WithTimeout sets the per-attempt timeout. Without it the executor's policy applies.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(timeout time.Duration) option {
	return func(d *Descriptor) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithMaxAttempts sets the attempt bound. Without it the executor's policy applies.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxAttempts(n int) option {
	return func(d *Descriptor) {
		if n >= 1 {
			d.maxAttempts = n
		}
	}
}

// HeaderIdempotencyKey lets the upstream recognise a replayed submission.
const HeaderIdempotencyKey = "Idempotency-Key"

func (d Descriptor) Method() string {
	return d.method
}

func (d Descriptor) URL() string {
	return d.url
}

// Header returns a copy of the request headers.
func (d Descriptor) Header() http.Header {
	return d.header.Clone()
}

// Body returns a copy of the request body.
func (d Descriptor) Body() []byte {
	return bytes.Clone(d.body)
}

// Timeout is zero when the descriptor defers to the executor's policy.
func (d Descriptor) Timeout() time.Duration {
	return d.timeout
}

func (d Descriptor) MaxAttempts() int {
	return d.maxAttempts
}

func (d Descriptor) IdempotencyKey() string {
	return d.header.Get(HeaderIdempotencyKey)
}

// NewRequest builds a fresh *http.Request for one attempt.
func (d Descriptor) NewRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if len(d.body) > 0 {
		body = bytes.NewReader(d.body)
	}

	req, err := http.NewRequestWithContext(ctx, d.method, d.url, body)
	if err != nil {
		return nil, err
	}
	req.Header = d.header.Clone()

	return req, nil
}
