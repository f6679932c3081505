package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures the way callers need to react to them. HTTP layers
// map kinds to status codes; services use them to keep "not yours" distinct
// from "can't cancel now".
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindInvalidState
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalid:
		return "invalid_request"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return New(KindUnauthenticated, format, args...)
}

func Forbidden(format string, args ...any) error {
	return New(KindForbidden, format, args...)
}

func InvalidState(format string, args ...any) error {
	return New(KindInvalidState, format, args...)
}

func Invalid(format string, args ...any) error {
	return New(KindInvalid, format, args...)
}

func Unavailable(format string, args ...any) error {
	return New(KindUnavailable, format, args...)
}

// KindOf unwraps through pkg/errors chains and returns the classification, or
// KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsUnavailable(err error) bool { return KindOf(err) == KindUnavailable }
