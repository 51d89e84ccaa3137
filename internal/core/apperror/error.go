// Package apperror provides structured error handling for the POS API.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal        = "INTERNAL_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Store constraint violations (406, 409)
	CodeConstraint = "CONSTRAINT_VIOLATION"
	CodeDuplicate  = "DUPLICATE_ENTRY"

	// Throttling (429)
	CodeRateLimited = "RATE_LIMITED"
)

// Fixed client-facing messages.
const (
	MessageUnauthorized  = "Unauthorized"
	MessageDenied        = "Your request has been denied."
	MessageNotProcessed  = "Can not be processed."
	MessageMetrcFailed   = "Metrc Sync Failed."
	MessageMetrcSyncFail = "Error syncing with Metrc."
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a user-facing validation error (400).
// The message reaches the client verbatim.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an unclassified error. The cause is logged, never returned.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    MessageDenied,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401) with the fixed message.
func NewUnauthorized() *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    MessageUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates a role error (403) with the fixed message.
func NewForbidden() *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    MessageUnauthorized,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a unique-constraint error (409).
func NewDuplicate(label string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    "Duplicated " + label,
		HTTPStatus: http.StatusConflict,
	}
}

// NewConstraint creates a foreign-key error (406).
func NewConstraint() *AppError {
	return &AppError{
		Code:       CodeConstraint,
		Message:    MessageNotProcessed,
		HTTPStatus: http.StatusNotAcceptable,
	}
}

// NewRateLimited creates a throttling error (429).
func NewRateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewExternalService creates a regulator failure for user-initiated actions (502).
func NewExternalService(message string, err error) *AppError {
	return &AppError{
		Code:       CodeExternalService,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Classify converts any error into an AppError.
// Errors that are not AppErrors become unclassified denials.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewInternal(err)
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsExternalService checks if error is CodeExternalService
func IsExternalService(err error) bool {
	return hasCode(err, CodeExternalService)
}

// IsForbidden checks if error is CodeForbidden
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
