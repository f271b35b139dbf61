package person

import (
	"errors"
	"testing"
)

func TestValidateCI(t *testing.T) {
	cases := []struct {
		ci   string
		want string
	}{
		{"12a45", "must be numeric"},
		{"123", "must be 6–12 digits"},
		{"1234567890123", "must be 6–12 digits"},
		{"", "is required"},
		{"123456", ""},
		{"123456789012", ""},
	}

	for _, tc := range cases {
		fe := ValidateCI(tc.ci)
		if tc.want == "" {
			if fe != nil {
				t.Fatalf("ci %q: expected valid, got %q", tc.ci, fe.Message)
			}
			continue
		}
		if fe == nil || fe.Message != tc.want {
			t.Fatalf("ci %q: expected %q, got %+v", tc.ci, tc.want, fe)
		}
	}
}

func TestValidateCollectsAllFields(t *testing.T) {
	err := Person{CI: "12a45"}.Normalize().Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 4 {
		t.Fatalf("expected 4 field errors, got %d: %v", len(verr.Fields), verr)
	}
	if !verr.Has("ci", "must be numeric") {
		t.Fatalf("expected ci numeric error, got %v", verr)
	}
}

func TestNormalizeCanonicalizesSex(t *testing.T) {
	p := Person{CI: " 1234567 ", Nombre: " Ana ", Apellido: "Pérez", Sexo: "femenino"}.Normalize()
	if p.CI != "1234567" || p.Nombre != "Ana" || p.Sexo != SexFemale {
		t.Fatalf("unexpected normalized person: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid person, got %v", err)
	}
}

func TestValidateReportsFieldMessages(t *testing.T) {
	cases := []struct {
		name  string
		p     Person
		field string
		want  string
	}{
		{"missing nombre", Person{CI: "1234567", Apellido: "Pérez", Sexo: SexMale}, "nombre", MsgRequired},
		{"missing apellido", Person{CI: "1234567", Nombre: "Ana", Sexo: SexFemale}, "apellido", MsgRequired},
		{"missing sexo", Person{CI: "1234567", Nombre: "Ana", Apellido: "Pérez"}, "sexo", MsgRequired},
		{"unknown sexo", Person{CI: "1234567", Nombre: "Ana", Apellido: "Pérez", Sexo: "X"}, "sexo", MsgSexOneOf},
		{"short ci", Person{CI: "123", Nombre: "Ana", Apellido: "Pérez", Sexo: SexOther}, "ci", MsgCIDigits},
		{"non numeric ci", Person{CI: "12a45", Nombre: "Ana", Apellido: "Pérez", Sexo: SexOther}, "ci", MsgNumeric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 || !verr.Has(tc.field, tc.want) {
				t.Fatalf("expected only %s %q, got %v", tc.field, tc.want, verr)
			}
		})
	}
}
