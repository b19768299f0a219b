package apperrors

import (
	"errors"
	"fmt"
)

// AppError carries a classification code alongside the message so handlers can
// map failures to HTTP statuses without string matching.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New creates an AppError with the given code and message.
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError that preserves the underlying cause for errors.Is/As.
func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Validation reports a malformed request. Such errors are surfaced to the
// caller as a rejected operation and never retried.
func Validation(msg string) error {
	return New(CodeInvalidArgument, msg)
}

// Validationf is Validation with fmt-style formatting.
func Validationf(format string, args ...any) error {
	return New(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound reports an operation on an id that does not resolve.
func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

// AlreadyExists reports a uniqueness conflict.
func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

// Unauthenticated reports a missing or invalid identity.
func Unauthenticated(msg string) error {
	return New(CodeUnauthenticated, msg)
}

// Internal reports an unexpected server-side failure.
func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

// CodeOf extracts the classification code from err, walking the wrap chain.
// Errors that are not AppErrors report CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsNotFound reports whether err is classified as not-found.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
