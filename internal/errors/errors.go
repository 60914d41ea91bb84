// Package errors defines the application error taxonomy shared by handlers,
// middleware and the CLI. Every error carries a stable code, an HTTP status
// and a human-readable detail message.
package errors

import (
	"errors"
	"net/http"
)

// Error is the application error type. The Detail field is what clients see;
// Err (optional) preserves the underlying cause for logging.
type Error struct {
	Code   string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// User errors (400-level)

func NewInvalidInput(detail string) *Error {
	return &Error{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Detail: detail}
}

func NewValidationFailed(detail string) *Error {
	return &Error{Code: "VALIDATION_FAILED", Status: http.StatusUnprocessableEntity, Detail: detail}
}

func NewNotFound(detail string) *Error {
	return &Error{Code: "NOT_FOUND", Status: http.StatusNotFound, Detail: detail}
}

func NewConflict(detail string) *Error {
	return &Error{Code: "CONFLICT", Status: http.StatusConflict, Detail: detail}
}

func NewMethodNotAllowed(detail string) *Error {
	return &Error{Code: "METHOD_NOT_ALLOWED", Status: http.StatusMethodNotAllowed, Detail: detail}
}

func NewQuotaExceeded(detail string) *Error {
	return &Error{Code: "QUOTA_EXCEEDED", Status: http.StatusTooManyRequests, Detail: detail}
}

// Server errors (500-level)

func NewInternal(detail string) *Error {
	return &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Detail: detail}
}

func NewDatabaseError(detail string) *Error {
	return &Error{Code: "DATABASE_ERROR", Status: http.StatusInternalServerError, Detail: detail}
}

func NewConfigInvalid(detail string) *Error {
	return &Error{Code: "CONFIG_INVALID", Status: http.StatusInternalServerError, Detail: detail}
}

// Wrap helpers keep the cause attached for logs while controlling what the
// client sees.

func WrapInternal(err error, detail string) *Error {
	return &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Detail: detail, Err: err}
}

func WrapDatabase(err error, detail string) *Error {
	return &Error{Code: "DATABASE_ERROR", Status: http.StatusInternalServerError, Detail: detail, Err: err}
}

func WrapInvalidInput(err error, detail string) *Error {
	return &Error{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Detail: detail, Err: err}
}

// From extracts an *Error from err, converting unknown errors into a generic
// internal error so clients never see raw error text.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return WrapInternal(err, "Internal server error")
}
