package ieventrepo

import (
	"context"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

// IEventPublisher is interface for registration event publishers.
type IEventPublisher interface {
	PublishRegistered(ctx context.Context, s submission.Submission) error
}
