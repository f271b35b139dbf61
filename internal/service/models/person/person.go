package person

import (
	"errors"
	"fmt"
	"strings"
)

// Person represents a user registered through the form.
type Person struct {
	CI       string `json:"ci" validate:"required,number,min=6,max=12"`
	Nombre   string `json:"nombre" validate:"required"`
	Apellido string `json:"apellido" validate:"required"`
	Sexo     Sex    `json:"sexo" validate:"required,oneof=M F O"`

	// Legacy list fields, only filled by the older persons API.
	ID            string `json:"id,omitempty"`
	Direccion     string `json:"direccion,omitempty"`
	FechaNac      string `json:"fecha_nac,omitempty"`
	EstadoCivil   string `json:"estado_civil,omitempty"`
	TransaccionID string `json:"transaccion_id,omitempty"`
}

// Sex is the value picked in the form's sex selector.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

var ErrInvalidSex = errors.New("invalid sex")

func (s Sex) String() string {
	return string(s)
}

// ParseSex accepts the selector values and their spelled-out Spanish labels.
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MASCULINO":
		return SexMale, nil
	case "F", "FEMENINO":
		return SexFemale, nil
	case "O", "OTRO":
		return SexOther, nil
	default:
		return "", ErrInvalidSex
	}
}

// Normalize trims every field and canonicalizes the sex value when it is recognized.
func (p Person) Normalize() Person {
	p.CI = strings.TrimSpace(p.CI)
	p.Nombre = strings.TrimSpace(p.Nombre)
	p.Apellido = strings.TrimSpace(p.Apellido)
	if sex, err := ParseSex(string(p.Sexo)); err == nil {
		p.Sexo = sex
	}

	return p
}

func (p Person) String() string {
	return fmt.Sprintf("%s %s (%s)", p.Nombre, p.Apellido, p.CI)
}
