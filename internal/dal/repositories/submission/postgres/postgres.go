package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/registration/internal/dal/postgres"
	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
	"github.com/jackc/pgx/v5"
)

var columns = []string{
	"id",
	"ci",
	"transport",
	"status",
	"message",
	"transaccion_id",
	"attempts",
	"replays",
	"last_error",
	"created_at",
	"updated_at",
}

const upsertSuffix = `ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	message = EXCLUDED.message,
	transaccion_id = EXCLUDED.transaccion_id,
	attempts = EXCLUDED.attempts,
	replays = EXCLUDED.replays,
	last_error = EXCLUDED.last_error,
	updated_at = EXCLUDED.updated_at`

// SubmissionRepository implements the submission journal for PostgreSQL.
type SubmissionRepository struct {
	client *postgres.Client
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(client *postgres.Client) *SubmissionRepository {
	return &SubmissionRepository{
		client: client,
	}
}

func saveQuery(s submission.Submission) (string, []any, error) {
	return sq.Insert("submissions").
		Columns(columns...).
		Values(
			s.ID,
			s.CI,
			s.Transport,
			string(s.Status),
			s.Message,
			s.TransaccionID,
			s.Attempts,
			s.Replays,
			s.LastError,
			s.CreatedAt,
			s.UpdatedAt,
		).
		Suffix(upsertSuffix).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// Save inserts the submission or updates its mutable columns.
func (r *SubmissionRepository) Save(ctx context.Context, s submission.Submission) error {
	query, args, err := saveQuery(s)
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

// Get returns the submission with the given id.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (submission.Submission, error) {
	query, args, err := sq.Select(columns...).
		From("submissions").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return submission.Submission{}, fmt.Errorf("failed to build select query: %w", err)
	}

	s, err := scan(r.client.Pool().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return submission.Submission{}, submission.ErrNotFound
	}
	if err != nil {
		return submission.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}

	return s, nil
}

func listQuery(limit int) (string, []any, error) {
	return sq.Select(columns...).
		From("submissions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// List returns at most limit submissions, newest first.
func (r *SubmissionRepository) List(ctx context.Context, limit int) ([]submission.Submission, error) {
	query, args, err := listQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []submission.Submission
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return subs, nil
}

func scan(row pgx.Row) (submission.Submission, error) {
	var (
		s      submission.Submission
		status string
	)
	err := row.Scan(
		&s.ID,
		&s.CI,
		&s.Transport,
		&status,
		&s.Message,
		&s.TransaccionID,
		&s.Attempts,
		&s.Replays,
		&s.LastError,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	s.Status = submission.Status(status)

	return s, err
}
