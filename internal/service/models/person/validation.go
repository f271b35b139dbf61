package person

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinCIDigits = 6
	MaxCIDigits = 12
)

const (
	MsgRequired   = "is required"
	MsgNumeric    = "must be numeric"
	MsgCIDigits   = "must be 6–12 digits"
	MsgSexOneOf   = "must be one of M, F, O"
	ciValidateTag = "required,number,min=6,max=12"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// FieldError is a client-side check that failed for one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failed field check of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+" "+f.Message)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether field failed with message.
func (e *ValidationError) Has(field, message string) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Message == message {
			return true
		}
	}

	return false
}

// ValidateCI checks the identity card number: digits only, 6 to 12 of them.
func ValidateCI(ci string) *FieldError {
	err := validate.Var(ci, ciValidateTag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FieldError{Field: "ci", Message: MsgNumeric}
	}

	return &FieldError{Field: "ci", Message: fieldMessage(verrs[0].Tag())}
}

// Validate runs all form checks on a normalized person.
func (p Person) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe.Tag())})
	}

	return &ValidationError{Fields: fields}
}

func fieldMessage(tag string) string {
	switch tag {
	case "required":
		return MsgRequired
	case "number":
		return MsgNumeric
	case "min", "max":
		return MsgCIDigits
	case "oneof":
		return MsgSexOneOf
	default:
		return "is invalid"
	}
}
