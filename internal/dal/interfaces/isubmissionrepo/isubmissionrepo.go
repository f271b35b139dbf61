package isubmissionrepo

import (
	"context"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

// ISubmissionRepository is interface for the submission journal.
type ISubmissionRepository interface {
	// Save inserts s or replaces the record with the same id.
	Save(ctx context.Context, s submission.Submission) error
	Get(ctx context.Context, id string) (submission.Submission, error)
	// List returns the newest submissions first.
	List(ctx context.Context, limit int) ([]submission.Submission, error)
}
