package registrationsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/corray333/backend-labs/registration/internal/codec"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/ieventrepo"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/isubmissionrepo"
	"github.com/corray333/backend-labs/registration/internal/dal/repositories/submission/memory"
	"github.com/corray333/backend-labs/registration/internal/metrics"
	"github.com/corray333/backend-labs/registration/internal/offlinequeue"
	"github.com/corray333/backend-labs/registration/internal/service/models/descriptor"
	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
	"github.com/google/uuid"
)

// ErrStillOffline is returned by a replay that had to be queued again.
var ErrStillOffline = errors.New("upstream still unreachable")

type requestExecutor interface {
	Execute(ctx context.Context, d descriptor.Descriptor) outcome.Outcome
}

type connectivityReporter interface {
	Report(online bool)
}

// Result is what the form shows after a submission.
type Result struct {
	SubmissionID  string            `json:"submissionId"`
	Status        submission.Status `json:"status"`
	Message       string            `json:"message"`
	TransaccionID string            `json:"transaccionId,omitempty"`
	Attempts      int               `json:"attempts"`

	// Set for rejected submissions.
	UpstreamStatus int             `json:"-"`
	Rejection      codec.Rejection `json:"-"`
	// Kind is the executor outcome the result was derived from.
	Kind outcome.Kind `json:"-"`
}

// RegistrationService is the form controller: it validates, submits and, while
// the upstream is unreachable, defers registrations to its offline queue.
type RegistrationService struct {
	baseURL  string
	codec    codec.Codec
	exec     requestExecutor
	queue    *offlinequeue.Queue
	observer connectivityReporter
	repo     isubmissionrepo.ISubmissionRepository
	events   ieventrepo.IEventPublisher
}

// option is a function that configures the RegistrationService.
type option func(*RegistrationService)

// MustNewRegistrationService creates a new RegistrationService.
func MustNewRegistrationService(opts ...option) *RegistrationService {
	s := &RegistrationService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.codec == nil || s.exec == nil {
		panic("registrationsvc: codec and executor are required")
	}
	if s.queue == nil {
		s.queue = offlinequeue.New("registration")
	}
	if s.repo == nil {
		s.repo = memory.NewSubmissionRepository()
	}

	return s
}

// WithBaseURL sets the upstream base address.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBaseURL(baseURL string) option {
	return func(s *RegistrationService) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCodec sets the wire codec.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCodec(c codec.Codec) option {
	return func(s *RegistrationService) {
		s.codec = c
	}
}

// WithExecutor sets the request executor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithExecutor(e requestExecutor) option {
	return func(s *RegistrationService) {
		s.exec = e
	}
}

// WithQueue sets the offline queue.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(q *offlinequeue.Queue) option {
	return func(s *RegistrationService) {
		s.queue = q
	}
}

// WithObserver sets where connectivity losses are reported.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithObserver(o connectivityReporter) option {
	return func(s *RegistrationService) {
		s.observer = o
	}
}

// WithSubmissionRepository sets the submission journal.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSubmissionRepository(repo isubmissionrepo.ISubmissionRepository) option {
	return func(s *RegistrationService) {
		s.repo = repo
	}
}

// WithEventPublisher enables person.registered events.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventPublisher(p ieventrepo.IEventPublisher) option {
	return func(s *RegistrationService) {
		s.events = p
	}
}

// Queue returns the offline queue holding deferred registrations.
func (s *RegistrationService) Queue() *offlinequeue.Queue {
	return s.queue
}

// Register validates p and submits it. A validation failure is returned as
// *person.ValidationError and nothing is sent.
func (s *RegistrationService) Register(ctx context.Context, p person.Person) (Result, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return Result{Message: outcome.MsgValidation}, err
	}

	now := time.Now()
	sub := submission.Submission{
		ID:        uuid.NewString(),
		CI:        p.CI,
		Transport: s.codec.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	d, err := s.registerDescriptor(p, sub.ID)
	if err != nil {
		return Result{}, err
	}

	res := s.settle(ctx, &sub, d, s.exec.Execute(ctx, d))

	return res, nil
}

func (s *RegistrationService) registerDescriptor(p person.Person, id string) (descriptor.Descriptor, error) {
	payload, err := s.codec.EncodeRegister(p)
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("failed to encode registration: %w", err)
	}

	header := maps.Clone(payload.Header)
	if header == nil {
		header = make(map[string]string)
	}
	if payload.ContentType != "" {
		header["Content-Type"] = payload.ContentType
	}
	header[descriptor.HeaderIdempotencyKey] = id

	return descriptor.New(payload.Method, s.baseURL+payload.Path,
		descriptor.WithHeaders(header),
		descriptor.WithBody(payload.Body),
	), nil
}

// settle maps an outcome onto the submission, journals it and, on connectivity
// loss, queues a replay.
func (s *RegistrationService) settle(
	ctx context.Context,
	sub *submission.Submission,
	d descriptor.Descriptor,
	o outcome.Outcome,
) Result {
	sub.Attempts += o.Attempts
	sub.UpdatedAt = time.Now()
	sub.LastError = ""
	if o.Err != nil {
		sub.LastError = o.Err.Error()
	}

	res := Result{SubmissionID: sub.ID, Kind: o.Kind}

	switch {
	case o.OK():
		reply, err := s.codec.DecodeRegister(o.Body)
		if err != nil {
			sub.Status = submission.StatusFailed
			sub.Message = outcome.MsgRegisterFailed
			sub.LastError = err.Error()
			break
		}
		sub.Status = submission.StatusRegistered
		sub.Message = reply.Message
		if sub.Message == "" {
			sub.Message = outcome.MsgRegistered
		}
		sub.TransaccionID = reply.TransaccionID
		if s.observer != nil {
			s.observer.Report(true)
		}

	case o.Kind == outcome.KindServerError:
		rej := s.codec.DecodeRejection(o.Status, o.Body)
		sub.Status = submission.StatusRejected
		sub.Message = rej.Message
		if sub.Message == "" {
			sub.Message = outcome.ServerMessage(o.Status)
		}
		res.UpstreamStatus = o.Status
		res.Rejection = rej

	case o.ConnectivityLost() || (o.Kind == outcome.KindCanceled && sub.Replays > 0):
		if o.ConnectivityLost() && s.observer != nil {
			s.observer.Report(false)
		}
		sub.Status = submission.StatusQueued
		sub.Message = outcome.MsgQueued
		s.queue.Enqueue("register "+sub.CI, s.replay(*sub, d))

	default:
		sub.Status = submission.StatusFailed
		sub.Message = outcome.Message(o)
	}

	res.Status = sub.Status
	res.Message = sub.Message
	res.TransaccionID = sub.TransaccionID
	res.Attempts = sub.Attempts

	s.journal(ctx, *sub)

	return res
}

// replay re-executes the original descriptor. It returns an error only when
// the submission had to be queued again, which stops the drain.
func (s *RegistrationService) replay(sub submission.Submission, d descriptor.Descriptor) offlinequeue.ReplayFunc {
	return func(ctx context.Context) error {
		sub.Replays++
		res := s.settle(ctx, &sub, d, s.exec.Execute(ctx, d))

		slog.Info("Registration replayed",
			"submission_id", sub.ID,
			"status", res.Status,
			"replays", sub.Replays,
		)

		if res.Status == submission.StatusQueued {
			return fmt.Errorf("replay of submission %s: %w", sub.ID, ErrStillOffline)
		}

		return nil
	}
}

func (s *RegistrationService) journal(ctx context.Context, sub submission.Submission) {
	metrics.SubmissionsTotal.WithLabelValues(sub.Status.String()).Inc()

	// The journal must be written even when the caller went away.
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.Save(ctx, sub); err != nil {
		slog.Error("Failed to journal submission", "submission_id", sub.ID, "error", err)
	}

	if sub.Status != submission.StatusRegistered || s.events == nil {
		return
	}
	if err := s.events.PublishRegistered(ctx, sub); err != nil {
		slog.Error("Failed to publish registration event", "submission_id", sub.ID, "error", err)
	}
}

// Submission returns one journaled submission.
func (s *RegistrationService) Submission(ctx context.Context, id string) (submission.Submission, error) {
	return s.repo.Get(ctx, id)
}

// Submissions returns the latest journaled submissions, newest first.
func (s *RegistrationService) Submissions(ctx context.Context, limit int) ([]submission.Submission, error) {
	if limit <= 0 {
		limit = 50
	}

	return s.repo.List(ctx, limit)
}
