package registerperson

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/registration/internal/service/models/outcome"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
	"github.com/corray333/backend-labs/registration/internal/service/services/registrationsvc"
)

type service interface {
	Register(ctx context.Context, p person.Person) (registrationsvc.Result, error)
}

// registerPersonRequest is the form as posted by the front end.
type registerPersonRequest struct {
	CI       string `json:"ci"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Sexo     string `json:"sexo"`
}

func (r *registerPersonRequest) toModel() person.Person {
	return person.Person{
		CI:       r.CI,
		Nombre:   r.Nombre,
		Apellido: r.Apellido,
		Sexo:     person.Sex(r.Sexo),
	}
}

type errorResponse struct {
	ErrorType string              `json:"errorType"`
	Message   string              `json:"message"`
	Fields    []person.FieldError `json:"fields,omitempty"`
	Status    int                 `json:"status,omitempty"`
}

// Register handles a form submission.
func Register(w http.ResponseWriter, r *http.Request, service service) {
	req := registerPersonRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{ErrorType: "BadRequest", Message: err.Error()})
		slog.Error("Error decoding request body for register", "error", err)

		return
	}

	res, err := service.Register(r.Context(), req.toModel())

	var verr *person.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			ErrorType: "ValidationError",
			Message:   outcome.MsgValidation,
			Fields:    verr.Fields,
		})

		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{ErrorType: "InternalError", Message: outcome.MsgRegisterFailed})
		slog.Error("Error registering person", "error", err)

		return
	}

	switch res.Status {
	case submission.StatusRegistered:
		writeJSON(w, http.StatusCreated, res)
	case submission.StatusQueued:
		writeJSON(w, http.StatusAccepted, res)
	case submission.StatusRejected:
		writeJSON(w, http.StatusBadGateway, errorResponse{
			ErrorType: "ServerRejected",
			Message:   res.Message,
			Status:    res.UpstreamStatus,
		})
	default:
		status, errorType := failureStatus(res.Kind)
		writeJSON(w, status, errorResponse{ErrorType: errorType, Message: res.Message})
	}
}

func failureStatus(k outcome.Kind) (int, string) {
	switch k {
	case outcome.KindTimeout, outcome.KindExhaustedRetries, outcome.KindCanceled:
		return http.StatusGatewayTimeout, k.String()
	case outcome.KindSuccess:
		// The upstream accepted the request but its reply could not be read.
		return http.StatusBadGateway, "BadUpstreamResponse"
	default:
		return http.StatusBadGateway, k.String()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
