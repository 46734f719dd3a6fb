// Package errors provides the structured error system for flashconn with
// error codes, categories, and array fault classification.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a structured error code for flashconn operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration errors
	ErrCodeInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrCodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"
	ErrCodeMissingCapability  ErrorCode = "MISSING_CAPABILITY"

	// Session errors
	ErrCodeArrayUnreachable     ErrorCode = "ARRAY_UNREACHABLE"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeIncompatibleVersion  ErrorCode = "INCOMPATIBLE_ARRAY_VERSION"

	// Array object errors
	ErrCodeVolumeNotFound     ErrorCode = "VOLUME_NOT_FOUND"
	ErrCodeHostNotFound       ErrorCode = "HOST_NOT_FOUND"
	ErrCodeConnectionNotFound ErrorCode = "CONNECTION_NOT_FOUND"
	ErrCodeMappingConflict    ErrorCode = "MAPPING_CONFLICT"
	ErrCodeGroupPartial       ErrorCode = "GROUP_PARTIALLY_POPULATED"

	// Topology errors
	ErrCodeNoReachableTargets ErrorCode = "NO_REACHABLE_TARGETS"
	ErrCodeNoUsablePorts      ErrorCode = "NO_USABLE_PORTS"

	// Caller input errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySession       ErrorCategory = "session"
	CategoryArray         ErrorCategory = "array"
	CategoryTopology      ErrorCategory = "topology"
	CategoryInput         ErrorCategory = "input"
	CategoryInternal      ErrorCategory = "internal"
)

// Error represents a structured flashconn error.
type Error struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
	Cause    error         `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return e.Code == other.Code
	}
	return false
}

// New creates a new structured error.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Category: GetCategory(code),
		Message:  message,
	}
}

// Newf creates a new structured error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new structured error wrapping a cause.
func Wrap(code ErrorCode, cause error, message string) *Error {
	err := New(code, message)
	err.Cause = cause
	return err
}

// GetCategory determines the category for an error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "CREDENTIALS_") ||
		strings.HasPrefix(codeStr, "MISSING_CAPABILITY"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "ARRAY_UNREACHABLE") || strings.HasPrefix(codeStr, "AUTHENTICATION_") ||
		strings.HasPrefix(codeStr, "INCOMPATIBLE_"):
		return CategorySession
	case strings.HasPrefix(codeStr, "VOLUME_") || strings.HasPrefix(codeStr, "HOST_") ||
		strings.HasPrefix(codeStr, "CONNECTION_") || strings.HasPrefix(codeStr, "MAPPING_") ||
		strings.HasPrefix(codeStr, "GROUP_"):
		return CategoryArray
	case strings.HasPrefix(codeStr, "NO_REACHABLE_") || strings.HasPrefix(codeStr, "NO_USABLE_"):
		return CategoryTopology
	case strings.HasPrefix(codeStr, "INVALID_INPUT"):
		return CategoryInput
	default:
		return CategoryInternal
	}
}

// IsCode reports whether err or any error in its chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
