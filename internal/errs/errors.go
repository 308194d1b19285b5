// Package errs is the error type shared by odatasql subsystems.
//
// SQL Server sessions, the object store and config loading classify their
// native errors into a Kind. The HTTP and CLI boundaries read the kind and
// never import a driver package:
//
//	return errs.Wrap(errs.ErrKindConnectionFailed, "login failed", sqlErr)
//
//	if errs.IsNotFound(err) { ... }
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind classifies an error independently of the backend that raised it.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // unknown object or database
	ErrKindConnectionFailed         // catalog unreachable or login refused
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // catalog or data query error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied by the server
)

var kindNames = [...]string{
	ErrKindUnknown:          "unknown",
	ErrKindNotFound:         "not_found",
	ErrKindConnectionFailed: "connection_failed",
	ErrKindTimeout:          "timeout",
	ErrKindQueryFailed:      "query_failed",
	ErrKindInvalidInput:     "invalid_input",
	ErrKindPermissionDenied: "permission_denied",
}

func (k ErrKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[ErrKindUnknown]
	}
	return kindNames[k]
}

// Error carries a kind, a message safe to show callers, and the native
// cause kept for logs.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// ErrKindUnknown.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

func IsNotFound(err error) bool         { return KindOf(err) == ErrKindNotFound }
func IsTimeout(err error) bool          { return KindOf(err) == ErrKindTimeout }
func IsConnectionFailed(err error) bool { return KindOf(err) == ErrKindConnectionFailed }
func IsQueryFailed(err error) bool      { return KindOf(err) == ErrKindQueryFailed }
func IsInvalidInput(err error) bool     { return KindOf(err) == ErrKindInvalidInput }
func IsPermissionDenied(err error) bool { return KindOf(err) == ErrKindPermissionDenied }

// HTTPStatus maps an error to the status code the OData boundary returns.
// Only not-found and bad input are distinct outcomes; everything else is a
// server-side failure.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message shown to HTTP clients. Not-found errors carry
// only their fixed message; other errors include the underlying cause.
func Public(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Kind == ErrKindNotFound || e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}
