// Package errors provides custom error types and error handling utilities.
package errors

import (
	"fmt"
)

// Error codes.
const (
	// Caller/configuration errors.
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeShapeMismatch = "SHAPE_MISMATCH"
	CodeDegenerate    = "DEGENERATE_INPUT"
	CodeValidation    = "VALIDATION_ERROR"

	// Infrastructure errors.
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ConfigurationError creates a configuration error.
func ConfigurationError(message string) *AppError {
	return New(CodeConfiguration, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ShapeMismatchError creates a shape mismatch error for two operands.
func ShapeMismatchError(message string) *AppError {
	return New(CodeShapeMismatch, message)
}

// DegenerateInputError creates a degenerate input error.
func DegenerateInputError(message string) *AppError {
	return New(CodeDegenerate, message)
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsConfiguration checks if error is a configuration error.
func IsConfiguration(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeConfiguration
	}
	return false
}

// IsShapeMismatch checks if error is a shape mismatch error.
func IsShapeMismatch(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeShapeMismatch
	}
	return false
}

// IsDegenerate checks if error is a degenerate input error.
func IsDegenerate(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeDegenerate
	}
	return false
}
