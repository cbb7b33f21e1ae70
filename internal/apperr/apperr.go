package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindProviderUnavailable Kind = "PROVIDER_UNAVAILABLE"
	KindProviderRejected    Kind = "PROVIDER_REJECTED"
	KindForbidden           Kind = "FORBIDDEN"
)

// Error carries a Kind so transports can map it without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func New(k Kind, msg string) error { return &Error{Kind: k, Msg: msg} }

func Newf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(k Kind, msg string, err error) error { return &Error{Kind: k, Msg: msg, Err: err} }

// KindOf extracts the kind, "" for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func Validation(msg string) error        { return New(KindValidation, msg) }
func NotFound(msg string) error          { return New(KindNotFound, msg) }
func Conflict(msg string) error          { return New(KindConflict, msg) }
func InvalidTransition(msg string) error { return New(KindInvalidTransition, msg) }
func Forbidden(msg string) error         { return New(KindForbidden, msg) }
