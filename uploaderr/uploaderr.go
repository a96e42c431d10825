// Package uploaderr defines the typed error kinds the upload engine
// returns. The HTTP host maps each kind to a status code and an envelope
// code; nothing below the handlers package needs to know about HTTP.
package uploaderr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// InvalidArgument: malformed header, bad sanitized name, bad range.
	InvalidArgument Kind = iota
	// NotFound: unknown file_id or chunk.
	NotFound
	// FailedPrecondition: system not initialized, wrong file status, a CAS
	// loss that is a client error.
	FailedPrecondition
	// AlreadyExists: duplicate file_id at registration.
	AlreadyExists
	// Unavailable: transient store or disk failure; safe to retry.
	Unavailable
	// DataLoss: whole-file digest mismatch at assembly.
	DataLoss
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case NotFound:
		return "NOT_FOUND"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case Unavailable:
		return "UNAVAILABLE"
	case DataLoss:
		return "DATA_LOSS"
	default:
		return "UNKNOWN"
	}
}

// Error wraps an underlying cause with a Kind the HTTP host can switch on.
type Error struct {
	Kind Kind
	Code string // machine-readable envelope code, e.g. "SYSTEM_NOT_INITIALIZED"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}
