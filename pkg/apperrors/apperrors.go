package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an API error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypePayloadTooLarge ErrorType = "payload_too_large"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypeDatabase        ErrorType = "database"
)

// APIError is a structured error carrying the HTTP status it maps to.
// The Message is safe to return to callers; the wrapped cause is not.
type APIError struct {
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	HTTPStatus  int       `json:"-"`
	InternalErr error     `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap returns the underlying cause
func (e *APIError) Unwrap() error {
	return e.InternalErr
}

// New creates a new API error
func New(errorType ErrorType, code, message string, httpStatus int) *APIError {
	return &APIError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ValidationError reports a malformed or disallowed input field
func ValidationError(message string) *APIError {
	return New(ErrorTypeValidation, "INVALID_INPUT", message, http.StatusBadRequest)
}

// InvalidFieldError reports a field that failed its allow-list pattern
func InvalidFieldError(field string) *APIError {
	return New(ErrorTypeValidation, "INVALID_FIELD",
		fmt.Sprintf("Invalid characters in field: %s", field), http.StatusBadRequest)
}

// MissingFieldError reports a required field that was absent
func MissingFieldError(field string) *APIError {
	return New(ErrorTypeValidation, "MISSING_FIELD",
		fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest)
}

// NotFoundError creates a not found error with a generic message
func NotFoundError(message string) *APIError {
	return New(ErrorTypeNotFound, "NOT_FOUND", message, http.StatusNotFound)
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *APIError {
	return New(ErrorTypeUnauthorized, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

// ForbiddenError creates a forbidden error
func ForbiddenError(message string) *APIError {
	return New(ErrorTypeForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

// PayloadTooLargeError reports a result set exceeding a resource bound
func PayloadTooLargeError(message string) *APIError {
	return New(ErrorTypePayloadTooLarge, "PAYLOAD_TOO_LARGE", message, http.StatusRequestEntityTooLarge)
}

// InternalError creates an opaque internal error; the cause is kept for
// server-side logging only
func InternalError(message string, cause error) *APIError {
	return &APIError{
		Type:        ErrorTypeInternal,
		Code:        "INTERNAL_ERROR",
		Message:     message,
		HTTPStatus:  http.StatusInternalServerError,
		InternalErr: cause,
	}
}

// DatabaseError wraps a store failure under an opaque message naming only
// the operation, never the payload
func DatabaseError(operation string, cause error) *APIError {
	return &APIError{
		Type:        ErrorTypeDatabase,
		Code:        "DATABASE_ERROR",
		Message:     fmt.Sprintf("Database operation failed: %s", operation),
		HTTPStatus:  http.StatusInternalServerError,
		InternalErr: cause,
	}
}

// AsAPIError extracts an *APIError from err, unwrapping as needed
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusFor returns the HTTP status code for an error, defaulting to 500
func StatusFor(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
