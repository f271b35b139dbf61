package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

type service interface {
	Submission(ctx context.Context, id string) (submission.Submission, error)
	Submissions(ctx context.Context, limit int) ([]submission.Submission, error)
}

type listSubmissionsRequest struct {
	Limit int `schema:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}

// Validate validates the list submissions request.
func (q *listSubmissionsRequest) Validate() error {
	return validator.New().Struct(q)
}

// List serves the latest journaled submissions.
func List(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &listSubmissionsRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	if err := query.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request", "error", err)

		return
	}

	subs, err := service.Submissions(r.Context(), query.Limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting submissions", "error", err)

		return
	}
	if subs == nil {
		subs = []submission.Submission{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(subs); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// Get serves one journaled submission.
func Get(w http.ResponseWriter, r *http.Request, service service) {
	sub, err := service.Submission(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, submission.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting submission", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sub); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
