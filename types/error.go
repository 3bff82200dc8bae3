package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the scaffold.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION"
	ErrCodeConfigInvalid     ErrorCode = "CONFIG_INVALID"
	ErrCodeToolExecution     ErrorCode = "TOOL_EXECUTION"
	ErrCodeWorkflowBuild     ErrorCode = "WORKFLOW_BUILD"
	ErrCodeWorkflowExecution ErrorCode = "WORKFLOW_EXECUTION"
	ErrCodeRecursionLimit    ErrorCode = "RECURSION_LIMIT"
	ErrCodeCheckpoint        ErrorCode = "CHECKPOINT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
)

// ErrValidation matches any *Error carrying ErrCodeValidation via errors.Is.
var ErrValidation = &Error{Code: ErrCodeValidation, Message: "validation failed"}

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError is a shorthand for NewError(ErrCodeValidation, message).
func NewValidationError(message string) *Error {
	return NewError(ErrCodeValidation, message)
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WrapError wraps err under code. A nil err yields nil.
func WrapError(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return NewError(code, message).WithCause(err)
}

// GetErrorCode extracts the error code from the first *Error in err's chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err's chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// Outcome labels shared by metrics and logs.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status maps err to StatusSuccess or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
