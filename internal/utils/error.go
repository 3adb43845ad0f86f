package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for every failure the publisher can report
const (
	// Configuration errors
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"

	// Identity provider errors
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"

	// Analytics API errors
	ErrCodeTransportFailed = "TRANSPORT_FAILED"
	ErrCodeRemoteRejected  = "REMOTE_REJECTED"

	// Payload errors
	ErrCodeSerializationFailed = "SERIALIZATION_FAILED"
	ErrCodeRowSourceFailed     = "ROW_SOURCE_FAILED"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Retryable  bool   `json:"retryable"`
	Cause      error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code       string
	message    string
	details    string
	cause      error
	statusCode int
	retryable  bool
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{
		code:      code,
		retryable: code == ErrCodeTransportFailed,
	}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// WithStatus sets the HTTP status code returned by the remote API
func (eb *ErrorBuilder) WithStatus(status int) *ErrorBuilder {
	eb.statusCode = status
	return eb
}

// WithRetryable overrides the default retry classification
func (eb *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	eb.retryable = retryable
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:       eb.code,
		Message:    eb.message,
		Details:    eb.details,
		StatusCode: eb.statusCode,
		Retryable:  eb.retryable,
		Cause:      eb.cause,
	}
}

// getDefaultMessage returns a default message for error codes
func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeInvalidConfiguration: "Invalid configuration",
		ErrCodeAuthenticationFailed: "Authentication failed",
		ErrCodeTransportFailed:      "Request to analytics API failed",
		ErrCodeRemoteRejected:       "Analytics API rejected the request",
		ErrCodeSerializationFailed:  "Payload serialization failed",
		ErrCodeRowSourceFailed:      "Failed to read rows",
	}

	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// NewAuthenticationError wraps a token acquisition failure
func NewAuthenticationError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeAuthenticationFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

// NewTransportError wraps a network level failure (DNS, refused, timeout)
func NewTransportError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeTransportFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

// NewRemoteRejection reports a non-success status. The body is kept as opaque text.
func NewRemoteRejection(status int, body string) *AppError {
	return NewErrorBuilder(ErrCodeRemoteRejected).
		WithMessage(fmt.Sprintf("unexpected status %d", status)).
		WithDetails(body).
		WithStatus(status).
		WithRetryable(isRetryableStatus(status)).
		Build()
}

func NewSerializationError(cause error) *AppError {
	return NewErrorBuilder(ErrCodeSerializationFailed).
		WithCause(cause).
		WithDetails(cause.Error()).
		Build()
}

func NewRowSourceError(cause error, source string) *AppError {
	return NewErrorBuilder(ErrCodeRowSourceFailed).
		WithMessage(fmt.Sprintf("failed to read rows from %s source", source)).
		WithCause(cause).
		WithDetails(cause.Error()).
		Build()
}

func NewConfigurationError(cause error) *AppError {
	return NewErrorBuilder(ErrCodeInvalidConfiguration).
		WithCause(cause).
		WithDetails(cause.Error()).
		Build()
}

func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	}
	return false
}

// AsAppError finds the first AppError in the chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType checks if an error matches a specific error code
func IsErrorType(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsRetryable reports whether repeating the same call could succeed
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}
