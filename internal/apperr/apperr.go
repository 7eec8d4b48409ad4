// Package apperr classifies failures so the HTTP boundary can map them to a
// status, a stable wire code and a public message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindFatal Kind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindUpstreamUnavailable
	KindSignatureInvalid
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindSignatureInvalid:
		return "signature_invalid"
	default:
		return "fatal"
	}
}

// HTTPStatus maps a kind to its response status. Stock conflicts are
// reported as 400 so the client can adjust quantities.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindConflict, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public messages shown to clients.
const (
	MsgUnauthorized      = "Unauthorized"
	MsgForbidden         = "Forbidden"
	MsgValidation        = "Validation error"
	MsgInternal          = "Internal server error"
	MsgCartEmpty         = "Cart is empty"
	MsgProductNotFound   = "Product not found"
	MsgOutOfStock        = "One or more items are out of stock or insufficient stock available"
	MsgInvalidSignature  = "Invalid signature"
	MsgSessionIncomplete = "Checkout session is not complete"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]any
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// With attaches a structured detail that is rendered next to error and code.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindFatal
}
