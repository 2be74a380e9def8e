package query

import (
	"errors"
	"fmt"
)

// Kind classifies why a query failed.
type Kind int

const (
	Network       Kind = iota // the request never got a response
	HTTPStatus                // the response status is not tolerated
	MalformedBody             // the body is not JSON
	Validation                // the body is JSON but not of the expected shape
	Application               // the body reports a failure of its own
	InvalidKey                // the wallet key cannot be derived from
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network error"
	case HTTPStatus:
		return "http status error"
	case MalformedBody:
		return "malformed body"
	case Validation:
		return "validation error"
	case Application:
		return "application error"
	case InvalidKey:
		return "invalid key"
	default:
		return fmt.Sprintf("query error %d", int(k))
	}
}

// Error is the single error type of every failed query. Msg is meant to be
// displayed as is.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // possibly nil
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// newError formats a message and keeps err as the cause.
func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Errorf returns an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return newError(kind, nil, format, args...)
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == kind
}
