package listusers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/corray333/backend-labs/registration/internal/service/services/usersvc"
)

type service interface {
	ListUsers(ctx context.Context) (usersvc.ListResult, error)
}

// ListUsers serves the user list, possibly stale.
func ListUsers(w http.ResponseWriter, r *http.Request, service service) {
	res, err := service.ListUsers(r.Context())
	if err != nil {
		msg := outcome.MsgListFailed
		var lerr *usersvc.ListError
		if errors.As(err, &lerr) {
			msg = lerr.Message
		}
		slog.Error("Error listing users", "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"errorType": "ListUnavailable",
			"message":   msg,
		})

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
