package kintone

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can handle it programmatically.
type ErrorKind string

const (
	// Caller misuse, surfaced immediately and never retried.
	KindInvalidArgument ErrorKind = "INVALID_ARGUMENT"

	// Mapping-layer failures.
	KindUnsupportedFieldType ErrorKind = "UNSUPPORTED_FIELD_TYPE"
	KindUnknownFieldCode     ErrorKind = "UNKNOWN_FIELD_CODE"
	KindReadOnlyFieldWrite   ErrorKind = "READ_ONLY_FIELD_WRITE"
	KindInvalidFieldValue    ErrorKind = "INVALID_FIELD_VALUE"

	// Remote and transport conditions.
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindRecordNotFound   ErrorKind = "RECORD_NOT_FOUND"
	KindRevisionConflict ErrorKind = "REVISION_CONFLICT"
	KindRemoteError      ErrorKind = "REMOTE_ERROR"
	KindNetworkError     ErrorKind = "NETWORK_ERROR"
	KindCancelled        ErrorKind = "CANCELLED"
)

// Error is the typed error returned by the mapper and the client. It is
// constructed where the failure is detected and never mutated afterwards.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 when not applicable
	Code    string // remote error code (e.g. GAIA_RE01), empty when not applicable
	Message string
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s: %s (code=%s)", e.Kind, e.Message, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status=%d)", e.Kind, e.Message, e.Status)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err is a kintone Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or an empty kind when err is not a
// kintone Error.
func KindOf(err error) ErrorKind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}
