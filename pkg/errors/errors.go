// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeConfigError       = "CONFIG_ERROR"
	CodeUnknownActivity   = "UNKNOWN_ACTIVITY"
	CodeDuplicateRelation = "DUPLICATE_RELATION"
	CodeParseError        = "PARSE_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeUploadError       = "UPLOAD_ERROR"
	CodeNotFound          = "NOT_FOUND"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrConfigError       = New(CodeConfigError, "configuration error")
	ErrUnknownActivity   = New(CodeUnknownActivity, "activity not registered")
	ErrDuplicateRelation = New(CodeDuplicateRelation, "duplicate directly-follows record")
	ErrParseError        = New(CodeParseError, "parse error")
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input")
	ErrDatabaseError     = New(CodeDatabaseError, "database error")
	ErrUploadError       = New(CodeUploadError, "upload error")
	ErrNotFound          = New(CodeNotFound, "resource not found")
)

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// IsUnknownActivity checks if the error indicates an unregistered activity.
func IsUnknownActivity(err error) bool {
	return errors.Is(err, ErrUnknownActivity)
}

// IsDuplicateRelation checks if the error is a duplicate directly-follows record.
func IsDuplicateRelation(err error) bool {
	return errors.Is(err, ErrDuplicateRelation)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
