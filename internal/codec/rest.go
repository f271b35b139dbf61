package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/corray333/backend-labs/registration/internal/service/models/person"
)

// RESTConfig holds the JSON API paths.
type RESTConfig struct {
	RegisterPath string
	ListPath     string
}

// REST is the JSON codec.
type REST struct {
	cfg RESTConfig
}

func NewREST(cfg RESTConfig) *REST {
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = "/persons/register"
	}
	if cfg.ListPath == "" {
		cfg.ListPath = "/persons"
	}

	return &REST{cfg: cfg}
}

func (c *REST) Name() string {
	return NameREST
}

type registerRequest struct {
	CI       string `json:"ci"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Sexo     string `json:"sexo"`
}

func (c *REST) EncodeRegister(p person.Person) (Payload, error) {
	body, err := json.Marshal(registerRequest{
		CI:       p.CI,
		Nombre:   p.Nombre,
		Apellido: p.Apellido,
		Sexo:     p.Sexo.String(),
	})
	if err != nil {
		return Payload{}, fmt.Errorf("failed to marshal register request: %w", err)
	}

	return Payload{
		Method:      http.MethodPost,
		Path:        c.cfg.RegisterPath,
		ContentType: "application/json",
		Header:      map[string]string{"Accept": "application/json"},
		Body:        body,
	}, nil
}

type registerResponse struct {
	Message             string     `json:"message"`
	TransaccionID       flexString `json:"transaccionId"`
	LegacyTransaccionID flexString `json:"transaccion_id"`
}

func (c *REST) DecodeRegister(body []byte) (RegisterReply, error) {
	var resp registerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RegisterReply{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	id := string(resp.TransaccionID)
	if id == "" {
		id = string(resp.LegacyTransaccionID)
	}

	return RegisterReply{Message: resp.Message, TransaccionID: id}, nil
}

func (c *REST) DecodeRejection(status int, body []byte) Rejection {
	var rej Rejection
	if err := json.Unmarshal(body, &rej); err != nil || rej.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 || strings.HasPrefix(text, "<") {
			text = ""
		}

		return Rejection{ErrorType: http.StatusText(status), Message: text}
	}

	return rej
}

func (c *REST) EncodeList() (Payload, error) {
	return Payload{
		Method: http.MethodGet,
		Path:   c.cfg.ListPath,
		Header: map[string]string{"Accept": "application/json"},
	}, nil
}

// userRecord accepts both the current and the legacy list shapes.
type userRecord struct {
	CI       flexString `json:"ci"`
	Nombre   string     `json:"nombre"`
	Apellido string     `json:"apellido"`
	Sexo     string     `json:"sexo"`

	ID            flexString `json:"id"`
	Direccion     string     `json:"direccion"`
	FechaNac      string     `json:"fecha_nac"`
	EstadoCivil   string     `json:"estado_civil"`
	TransaccionID flexString `json:"transaccion_id"`
}

func (c *REST) DecodeList(body []byte) ([]person.Person, error) {
	body = bytes.TrimSpace(body)

	var records []userRecord
	if len(body) > 0 && body[0] == '{' {
		var wrapped struct {
			Users []userRecord `json:"users"`
			Data  []userRecord `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		records = wrapped.Users
		if records == nil {
			records = wrapped.Data
		}
	} else if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	users := make([]person.Person, 0, len(records))
	for _, r := range records {
		users = append(users, person.Person{
			CI:            string(r.CI),
			Nombre:        r.Nombre,
			Apellido:      r.Apellido,
			Sexo:          person.Sex(r.Sexo),
			ID:            string(r.ID),
			Direccion:     r.Direccion,
			FechaNac:      r.FechaNac,
			EstadoCivil:   r.EstadoCivil,
			TransaccionID: string(r.TransaccionID),
		})
	}

	return users, nil
}

// flexString decodes a JSON string or number into its text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())

	return nil
}

var _ Codec = (*REST)(nil)
