package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

// SubmissionRepository keeps the journal in process memory. It is used when
// Postgres is disabled.
type SubmissionRepository struct {
	mu   sync.RWMutex
	subs map[string]submission.Submission
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{subs: make(map[string]submission.Submission)}
}

func (r *SubmissionRepository) Save(_ context.Context, s submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.subs[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	r.subs[s.ID] = s

	return nil
}

func (r *SubmissionRepository) Get(_ context.Context, id string) (submission.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subs[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}

	return s, nil
}

func (r *SubmissionRepository) List(_ context.Context, limit int) ([]submission.Submission, error) {
	r.mu.RLock()
	subs := make([]submission.Submission, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}

	return subs, nil
}
