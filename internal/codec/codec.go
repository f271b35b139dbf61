package codec

import (
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/spf13/viper"
)

const (
	NameREST = "rest"
	NameSOAP = "soap"
)

var (
	ErrUnknownCodec = errors.New("unknown transport codec")
	ErrNoUsers      = errors.New("no user data found in response")
	ErrMalformed    = errors.New("malformed upstream response")
)

// Payload is an encoded request, relative to the upstream base address.
type Payload struct {
	Method      string
	Path        string
	ContentType string
	Header      map[string]string
	Body        []byte
}

// RegisterReply is the upstream's answer to an accepted registration.
type RegisterReply struct {
	Message       string `json:"message"`
	TransaccionID string `json:"transaccionId"`
}

// Rejection is the upstream's explanation of a non-2xx response.
type Rejection struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// Codec turns registration and list requests into wire payloads and back.
type Codec interface {
	Name() string
	EncodeRegister(p person.Person) (Payload, error)
	DecodeRegister(body []byte) (RegisterReply, error)
	DecodeRejection(status int, body []byte) Rejection
	EncodeList() (Payload, error)
	DecodeList(body []byte) ([]person.Person, error)
}

// MustNewCodec builds the codec selected by upstream.transport.
func MustNewCodec() Codec {
	c, err := New(viper.GetString("upstream.transport"))
	if err != nil {
		panic(err)
	}

	return c
}

// New builds a codec by name with its settings read from viper.
func New(name string) (Codec, error) {
	switch name {
	case NameREST, "":
		return NewREST(RESTConfig{
			RegisterPath: viper.GetString("rest.register_path"),
			ListPath:     viper.GetString("rest.list_path"),
		}), nil
	case NameSOAP:
		return NewSOAP(SOAPConfig{
			Namespace:         viper.GetString("soap.namespace"),
			RegisterPath:      viper.GetString("soap.register_path"),
			ListPath:          viper.GetString("soap.list_path"),
			RegisterOperation: viper.GetString("soap.register_operation"),
			ListOperation:     viper.GetString("soap.list_operation"),
			ActionRegister:    viper.GetString("soap.action_register"),
			ActionList:        viper.GetString("soap.action_list"),
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
