package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/corray333/backend-labs/registration/internal/service/models/person"
)

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// SOAPConfig holds the legacy SOAP service settings.
type SOAPConfig struct {
	Namespace         string
	RegisterPath      string
	ListPath          string
	RegisterOperation string
	ListOperation     string
	ActionRegister    string
	ActionList        string
}

// SOAP is the XML envelope codec of the legacy service.
type SOAP struct {
	cfg SOAPConfig
}

func NewSOAP(cfg SOAPConfig) *SOAP {
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = "/persons/soap"
	}
	if cfg.ListPath == "" {
		cfg.ListPath = "/persons/get-datos-soap"
	}
	if cfg.RegisterOperation == "" {
		cfg.RegisterOperation = "RegisterPerson"
	}
	if cfg.ListOperation == "" {
		cfg.ListOperation = "GetDatos"
	}

	return &SOAP{cfg: cfg}
}

func (c *SOAP) Name() string {
	return NameSOAP
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func (c *SOAP) envelope(body string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="` + soapEnvelopeNS + `" xmlns:web="` + EscapeXML(c.cfg.Namespace) + `">`)
	b.WriteString(`<soapenv:Header/>`)
	b.WriteString(`<soapenv:Body>`)
	b.WriteString(body)
	b.WriteString(`</soapenv:Body>`)
	b.WriteString(`</soapenv:Envelope>`)

	return b.Bytes()
}

func (c *SOAP) payload(path, action string, body []byte) Payload {
	header := map[string]string{"Accept": "text/xml"}
	if action != "" {
		header["SOAPAction"] = action
	}

	return Payload{
		Method:      http.MethodPost,
		Path:        path,
		ContentType: "text/xml; charset=utf-8",
		Header:      header,
		Body:        body,
	}
}

func (c *SOAP) EncodeRegister(p person.Person) (Payload, error) {
	op := c.cfg.RegisterOperation

	var b strings.Builder
	b.WriteString("<web:" + op + ">")
	for _, f := range [][2]string{
		{"ci", p.CI},
		{"nombre", p.Nombre},
		{"apellido", p.Apellido},
		{"sexo", p.Sexo.String()},
	} {
		b.WriteString("<web:" + f[0] + ">" + EscapeXML(f[1]) + "</web:" + f[0] + ">")
	}
	b.WriteString("</web:" + op + ">")

	return c.payload(c.cfg.RegisterPath, c.cfg.ActionRegister, c.envelope(b.String())), nil
}

func (c *SOAP) DecodeRegister(body []byte) (RegisterReply, error) {
	fields, err := c.scan(body, "message", "transaccionId", "faultstring")
	if err != nil {
		return RegisterReply{}, err
	}
	if fault, ok := fields["faultstring"]; ok {
		return RegisterReply{}, fmt.Errorf("%w: soap fault: %s", ErrMalformed, fault)
	}

	msg, ok := fields["message"]
	if !ok {
		return RegisterReply{}, fmt.Errorf("%w: message element not found", ErrMalformed)
	}

	return RegisterReply{Message: msg, TransaccionID: fields["transaccionId"]}, nil
}

func (c *SOAP) DecodeRejection(status int, body []byte) Rejection {
	fields, err := c.scan(body, "faultcode", "faultstring", "message")
	if err != nil {
		return Rejection{ErrorType: http.StatusText(status)}
	}
	if fault, ok := fields["faultstring"]; ok {
		return Rejection{ErrorType: "SOAPFault", Message: fault}
	}

	return Rejection{ErrorType: http.StatusText(status), Message: fields["message"]}
}

func (c *SOAP) EncodeList() (Payload, error) {
	return c.payload(c.cfg.ListPath, c.cfg.ActionList, c.envelope("<web:"+c.cfg.ListOperation+"/>")), nil
}

type soapUser struct {
	CI       string `xml:"CI"`
	Nombre   string `xml:"Nombre"`
	Apellido string `xml:"Apellido"`
	Sexo     string `xml:"Sexo"`
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "N/A"
	}

	return s
}

func (c *SOAP) DecodeList(body []byte) ([]person.Person, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var users []person.Person
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "User" {
			continue
		}

		var u soapUser
		if err := dec.DecodeElement(&u, &start); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		users = append(users, person.Person{
			CI:       orNA(u.CI),
			Nombre:   orNA(u.Nombre),
			Apellido: orNA(u.Apellido),
			Sexo:     person.Sex(orNA(u.Sexo)),
		})
	}

	if len(users) == 0 {
		return nil, ErrNoUsers
	}

	return users, nil
}

// scan collects the text of the first element with each local name. Elements in
// the configured namespace win over same-named elements elsewhere.
func (c *SOAP) scan(body []byte, names ...string) (map[string]string, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	found := make(map[string]string)
	namespaced := make(map[string]bool)

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || !wanted[start.Name.Local] {
			continue
		}

		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		name := start.Name.Local
		inNS := c.cfg.Namespace != "" && start.Name.Space == c.cfg.Namespace
		if _, seen := found[name]; seen && (namespaced[name] || !inNS) {
			continue
		}
		found[name] = strings.TrimSpace(text)
		namespaced[name] = inNS
	}

	return found, nil
}

var _ Codec = (*SOAP)(nil)
