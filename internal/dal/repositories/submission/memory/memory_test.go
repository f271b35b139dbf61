package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

func TestSaveKeepsCreationTime(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository()
	created := time.Now().Add(-time.Minute)

	_ = repo.Save(ctx, submission.Submission{ID: "a", Status: submission.StatusQueued, CreatedAt: created})
	_ = repo.Save(ctx, submission.Submission{ID: "a", Status: submission.StatusRegistered, CreatedAt: time.Now()})

	s, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Status != submission.StatusRegistered || !s.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record %+v", s)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, submission.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository()
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		_ = repo.Save(ctx, submission.Submission{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	subs, _ := repo.List(ctx, 2)
	if len(subs) != 2 || subs[0].ID != "new" || subs[1].ID != "mid" {
		t.Fatalf("unexpected order %+v", subs)
	}
}
