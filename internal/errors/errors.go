package errors

import (
	stderrors "errors"
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// ErrorCode represents a sift error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrUnparseableQuery ErrorCode = "UNPARSEABLE_QUERY" // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrInvalidValue     ErrorCode = "INVALID_VALUE"     // 422
	ErrRateLimited      ErrorCode = "RATE_LIMITED"      // 429
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// StringError represents a structured error with code, status, and details.
type StringError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is kept for logging only and never rendered to callers.
	cause error
}

// Error implements the error interface.
func (e *StringError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *StringError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StringError {
	return &StringError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidValue creates a 422 error for a missing or mistyped value field.
func NewInvalidValue(msg string) *StringError {
	return &StringError{
		Code:    ErrInvalidValue,
		Status:  422,
		Message: msg,
	}
}

// NewUnparseableQuery creates a 400 error for a natural-language query that
// matched no interpretation rule.
func NewUnparseableQuery(query string) *StringError {
	return &StringError{
		Code:    ErrUnparseableQuery,
		Status:  400,
		Message: "unable to parse natural language query",
		Details: map[string]any{"query": query},
	}
}

// NewNotFound creates a 404 error for when a string cannot be found.
func NewNotFound(value string) *StringError {
	return &StringError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "string not found",
		Details: map[string]any{"value": value},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *StringError {
	return &StringError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for a string that is already stored.
func NewConflict(id string) *StringError {
	return &StringError{
		Code:    ErrConflict,
		Status:  409,
		Message: "string already exists",
		Details: map[string]any{"id": id},
	}
}

// NewRateLimited creates a 429 error when the request budget is exhausted.
func NewRateLimited() *StringError {
	return &StringError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "rate limit exceeded",
	}
}

// NewCancelled creates a 499 error when the caller gave up mid-operation.
func NewCancelled(operation string) *StringError {
	return &StringError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is retained with a stack trace but the message stays generic.
func NewInternal(err error) *StringError {
	var cause error
	if err != nil {
		cause = crdb.WithStack(err)
	}
	return &StringError{
		Code:    ErrInternal,
		Status:  500,
		Message: "internal error",
		cause:   cause,
	}
}

// From converts any error into a StringError. Errors that are not already
// structured become INTERNAL.
func From(err error) *StringError {
	if err == nil {
		return nil
	}
	var sErr *StringError
	if stderrors.As(err, &sErr) {
		return sErr
	}
	return NewInternal(err)
}

// Is checks if an error is a StringError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StringError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
