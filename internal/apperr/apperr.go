package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable error taxonomy surfaced by every service operation.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindDuplicateReferral Kind = "duplicate_referral"
	KindInvalidTransition Kind = "invalid_transition"
	KindNoActiveSession   Kind = "no_active_session"
	KindOracleUnavailable Kind = "oracle_unavailable"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone: errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return Newf(KindNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

func DuplicateReferral(format string, args ...any) *Error {
	return Newf(KindDuplicateReferral, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return Newf(KindInvalidTransition, format, args...)
}

func NoActiveSession(format string, args ...any) *Error {
	return Newf(KindNoActiveSession, format, args...)
}

func OracleUnavailable(err error) *Error {
	return &Error{Kind: KindOracleUnavailable, Err: err}
}

// KindOf extracts the taxonomy kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
