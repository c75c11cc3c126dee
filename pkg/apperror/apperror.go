// Package apperror defines the operational error value returned to clients.
// Components fail fast and propagate these untouched; the error-handling
// middleware is the only place that turns them into a response.
package apperror

import (
	"fmt"
	"runtime/debug"
)

// Kind tags the failure taxonomy. Every kind except KindUnclassified is
// operational: expected, client-caused, and safe to describe in a response.
type Kind string

const (
	KindNoCredential           Kind = "NO_CREDENTIAL"
	KindIncorrectCredentials   Kind = "INCORRECT_CREDENTIALS"
	KindInvalidToken           Kind = "INVALID_TOKEN"
	KindExpiredToken           Kind = "EXPIRED_TOKEN"
	KindRevokedCredential      Kind = "REVOKED_CREDENTIAL"
	KindStaleCredential        Kind = "STALE_CREDENTIAL"
	KindForbidden              Kind = "FORBIDDEN"
	KindInvalidIdentifier      Kind = "INVALID_IDENTIFIER"
	KindDuplicateValue         Kind = "DUPLICATE_VALUE"
	KindValidationFailed       Kind = "VALIDATION_FAILED"
	KindInvalidOrExpiredTicket Kind = "INVALID_OR_EXPIRED_TICKET"
	KindNotFound               Kind = "NOT_FOUND"
	KindMailDeliveryFailed     Kind = "MAIL_DELIVERY_FAILED"
	KindUnclassified           Kind = "UNCLASSIFIED"
)

type Error struct {
	Kind          Kind
	Message       string
	StatusCode    int
	IsOperational bool
	Err           error
	stack         []byte
}

func New(kind Kind, statusCode int, message string) *Error {
	return &Error{
		Kind:          kind,
		Message:       message,
		StatusCode:    statusCode,
		IsOperational: true,
		stack:         debug.Stack(),
	}
}

// Wrap marks an unrecognized failure as unclassified. The message is a fixed
// generic string; the underlying error is kept for logs and development mode
// but never shown to production clients.
func Wrap(err error) *Error {
	return &Error{
		Kind:          KindUnclassified,
		Message:       "something went very wrong",
		StatusCode:    500,
		IsOperational: false,
		Err:           err,
		stack:         debug.Stack(),
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the response status class: "fail" for 4xx, "error" otherwise.
func (e *Error) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

func (e *Error) Stack() string {
	return string(e.stack)
}
