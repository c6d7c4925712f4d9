// Package errs defines the error kinds surfaced by the inventory core.
//
// Storage details never leave the process boundary: callers match on Kind
// with errors.Is and show Public(err) to the user.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindStorage
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation failure"
	case KindStorage:
		return "storage failure"
	case KindExternal:
		return "external service failure"
	default:
		return "unknown"
	}
}

// Error is a classified error with a short human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a message must
// also match the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrExternal   = &Error{Kind: KindExternal}
)

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a KindStorage error. Errors that are already
// classified are returned unchanged.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorage, Err: err}
}

// External wraps err as a KindExternal error.
func External(message string, err error) error {
	return &Error{Kind: KindExternal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Public returns the message that may be shown outside the process.
func Public(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindNotFound, KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.String()
	case KindStorage:
		return "storage error"
	case KindExternal:
		if e.Message != "" {
			return e.Message
		}
		return "notification delivery failed"
	default:
		return "internal error"
	}
}

// Sanitize strips the wrapped cause from err, keeping only its kind and
// public message.
func Sanitize(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Message: Public(err)}
}
