package usersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/corray333/backend-labs/registration/internal/codec"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/iusercache"
	"github.com/corray333/backend-labs/registration/internal/dal/repositories/usercache/memory"
	"github.com/corray333/backend-labs/registration/internal/offlinequeue"
	"github.com/corray333/backend-labs/registration/internal/service/models/descriptor"
	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
)

// ErrStale is returned by a background refresh that could only serve the cache.
var ErrStale = errors.New("user list served from cache")

type requestExecutor interface {
	Execute(ctx context.Context, d descriptor.Descriptor) outcome.Outcome
}

type connectivityReporter interface {
	Report(online bool)
}

// ListResult is what the list view renders.
type ListResult struct {
	Users   []person.Person `json:"users"`
	Stale   bool            `json:"stale"`
	Message string          `json:"message,omitempty"`
}

// ListError is a list request that could not be served at all.
type ListError struct {
	// Status is the upstream status for rejections, zero otherwise.
	Status  int
	Message string
	Err     error
}

func (e *ListError) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return e.Message + ": " + e.Err.Error()
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// UserService is the list controller. While offline it serves the last list
// it saw and keeps at most one refresh waiting in its queue.
type UserService struct {
	baseURL  string
	codec    codec.Codec
	exec     requestExecutor
	queue    *offlinequeue.Queue
	observer connectivityReporter
	cache    iusercache.IUserCache

	mu             sync.Mutex
	refreshPending bool
}

// option is a function that configures the UserService.
type option func(*UserService)

// MustNewUserService creates a new UserService.
func MustNewUserService(opts ...option) *UserService {
	s := &UserService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.codec == nil || s.exec == nil {
		panic("usersvc: codec and executor are required")
	}
	if s.queue == nil {
		s.queue = offlinequeue.New("users")
	}
	if s.cache == nil {
		s.cache = memory.NewUserCache()
	}

	return s
}

// WithBaseURL sets the upstream base address.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBaseURL(baseURL string) option {
	return func(s *UserService) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCodec sets the wire codec.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCodec(c codec.Codec) option {
	return func(s *UserService) {
		s.codec = c
	}
}

// WithExecutor sets the request executor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithExecutor(e requestExecutor) option {
	return func(s *UserService) {
		s.exec = e
	}
}

// WithQueue sets the offline queue for deferred refreshes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(q *offlinequeue.Queue) option {
	return func(s *UserService) {
		s.queue = q
	}
}

// WithObserver sets where connectivity changes are reported.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithObserver(o connectivityReporter) option {
	return func(s *UserService) {
		s.observer = o
	}
}

// WithUserCache sets the cache used for stale lists.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUserCache(c iusercache.IUserCache) option {
	return func(s *UserService) {
		s.cache = c
	}
}

// Queue returns the offline queue holding the pending refresh.
func (s *UserService) Queue() *offlinequeue.Queue {
	return s.queue
}

// ListUsers fetches the user list. When the upstream cannot be reached it
// falls back to the cached list, marked stale.
func (s *UserService) ListUsers(ctx context.Context) (ListResult, error) {
	payload, err := s.codec.EncodeList()
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to encode list request: %w", err)
	}

	header := map[string]string{}
	for k, v := range payload.Header {
		header[k] = v
	}
	if payload.ContentType != "" {
		header["Content-Type"] = payload.ContentType
	}

	d := descriptor.New(payload.Method, s.baseURL+payload.Path,
		descriptor.WithHeaders(header),
		descriptor.WithBody(payload.Body),
	)

	o := s.exec.Execute(ctx, d)

	switch {
	case o.OK():
		return s.fresh(ctx, o)
	case o.Kind == outcome.KindServerError:
		return ListResult{}, &ListError{
			Status:  o.Status,
			Message: outcome.ServerMessage(o.Status),
			Err:     o.Err,
		}
	case o.Kind == outcome.KindCanceled:
		return ListResult{}, &ListError{Message: outcome.MsgCanceled, Err: o.Err}
	}

	if o.ConnectivityLost() {
		if s.observer != nil {
			s.observer.Report(false)
		}
		s.scheduleRefresh()
	}

	return s.stale(ctx, o)
}

func (s *UserService) fresh(ctx context.Context, o outcome.Outcome) (ListResult, error) {
	users, err := s.codec.DecodeList(o.Body)
	if err != nil {
		return ListResult{}, &ListError{Message: outcome.MsgListFailed, Err: err}
	}

	if s.observer != nil {
		s.observer.Report(true)
	}
	if err := s.cache.Store(context.WithoutCancel(ctx), users); err != nil {
		slog.Warn("Failed to cache user list", "error", err)
	}
	if users == nil {
		users = []person.Person{}
	}

	return ListResult{Users: users}, nil
}

func (s *UserService) stale(ctx context.Context, o outcome.Outcome) (ListResult, error) {
	users, ok, err := s.cache.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load cached user list", "error", err)
	}
	if !ok || err != nil {
		return ListResult{}, &ListError{Message: outcome.MsgListFailed, Err: o.Err}
	}
	if users == nil {
		users = []person.Person{}
	}

	return ListResult{Users: users, Stale: true, Message: outcome.MsgListStale}, nil
}

// scheduleRefresh queues a refresh unless one is already waiting.
func (s *UserService) scheduleRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshPending {
		return
	}
	s.refreshPending = true
	s.queue.Enqueue("refresh users", s.refresh)
}

func (s *UserService) refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshPending = false
	s.mu.Unlock()

	res, err := s.ListUsers(ctx)
	var lerr *ListError
	if errors.As(err, &lerr) && lerr.Status != 0 {
		// Rejected by the upstream: nothing to wait for.
		slog.Warn("User list refresh rejected", "status", lerr.Status)

		return nil
	}
	if err != nil {
		return err
	}
	if res.Stale {
		return ErrStale
	}

	slog.Info("User list refreshed", "users", len(res.Users))

	return nil
}
