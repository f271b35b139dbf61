package outcome

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags the result of executing a descriptor.
type Kind int

const (
	KindUnknown Kind = iota
	KindSuccess
	KindTimeout
	KindNetworkUnavailable
	KindServerError
	KindExhaustedRetries
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindTimeout:
		return "Timeout"
	case KindNetworkUnavailable:
		return "NetworkUnavailable"
	case KindServerError:
		return "ServerError"
	case KindExhaustedRetries:
		return "ExhaustedRetries"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

var (
	ErrTimeout            = errors.New("request timed out")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrExhaustedRetries   = errors.New("retries exhausted")
	ErrCanceled           = errors.New("request canceled")
)

// ServerError is a non-2xx response from the upstream. It is never retried.
type ServerError struct {
	Status int
	Body   []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server responded %d %s", e.Status, http.StatusText(e.Status))
}

// NetworkError wraps a transport failure that did not produce a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetworkUnavailable, e.Err}
}

// Outcome is the tagged result of one Execute call.
type Outcome struct {
	Kind Kind
	// Reason is the last failure kind when Kind is KindExhaustedRetries.
	Reason Kind

	Status int
	Header http.Header
	Body   []byte

	Attempts int
	Err      error
}

func Success(status int, header http.Header, body []byte, attempts int) Outcome {
	return Outcome{Kind: KindSuccess, Status: status, Header: header, Body: body, Attempts: attempts}
}

func Server(status int, header http.Header, body []byte, attempts int) Outcome {
	return Outcome{
		Kind:     KindServerError,
		Status:   status,
		Header:   header,
		Body:     body,
		Attempts: attempts,
		Err:      &ServerError{Status: status, Body: body},
	}
}

func Exhausted(last Outcome) Outcome {
	return Outcome{
		Kind:     KindExhaustedRetries,
		Reason:   last.Kind,
		Attempts: last.Attempts,
		Err:      fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, last.Attempts, last.Err),
	}
}

// Failure builds a Timeout, NetworkUnavailable or Canceled outcome from an attempt error.
func Failure(err error, attempts int) Outcome {
	kind := KindNetworkUnavailable
	switch {
	case errors.Is(err, ErrTimeout):
		kind = KindTimeout
	case errors.Is(err, ErrCanceled):
		kind = KindCanceled
	}

	return Outcome{Kind: kind, Attempts: attempts, Err: err}
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// ConnectivityLost reports whether the outcome means the upstream could not be reached,
// either directly or as the last reason of an exhausted retry loop.
func (o Outcome) ConnectivityLost() bool {
	return o.Kind == KindNetworkUnavailable ||
		(o.Kind == KindExhaustedRetries && o.Reason == KindNetworkUnavailable)
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindExhaustedRetries:
		return fmt.Sprintf("%s(%s, attempts=%d)", o.Kind, o.Reason, o.Attempts)
	case KindServerError, KindSuccess:
		return fmt.Sprintf("%s(%d, attempts=%d)", o.Kind, o.Status, o.Attempts)
	default:
		return fmt.Sprintf("%s(attempts=%d)", o.Kind, o.Attempts)
	}
}
