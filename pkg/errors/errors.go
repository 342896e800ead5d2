package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Discovery errors
	ErrSourceParse    ErrorCode = "SOURCE_PARSE"
	ErrSourceMetadata ErrorCode = "SOURCE_METADATA"
	ErrTargetMissing  ErrorCode = "TARGET_MISSING"

	// Variable resolution errors
	ErrVariableResolve ErrorCode = "VARIABLE_RESOLVE"

	// Merge errors
	ErrStrategyNotFound ErrorCode = "STRATEGY_NOT_FOUND"
	ErrMergeConflict    ErrorCode = "MERGE_CONFLICT"
	ErrMergeInvalid     ErrorCode = "MERGE_INVALID"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
)

// ConfitError represents a structured error with code and details
type ConfitError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ConfitError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfitError) Unwrap() error {
	return e.Wrapped
}

// Is matches on error code so sentinel comparisons stay stable across
// message changes.
func (e *ConfitError) Is(target error) bool {
	var targetErr *ConfitError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// WithDetail adds a detail key/value and returns the error for chaining
func (e *ConfitError) WithDetail(key string, value interface{}) *ConfitError {
	e.Details[key] = value
	return e
}

// New creates a new ConfitError with the given code and message
func New(code ErrorCode, message string) *ConfitError {
	return &ConfitError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ConfitError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ConfitError {
	return &ConfitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a ConfitError
func Wrap(err error, code ErrorCode, message string) *ConfitError {
	if err == nil {
		return nil
	}
	return &ConfitError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ConfitError {
	if err == nil {
		return nil
	}
	return &ConfitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// CodeOf extracts the error code from an error, or ErrUnknown
func CodeOf(err error) ErrorCode {
	var ce *ConfitError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrUnknown
}
