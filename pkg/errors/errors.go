// Package errors defines structured error types for the graphbind service.
// Errors carry a stable code and an HTTP status so handlers can map failures
// to responses without inspecting message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	// CodeAuthConfiguration means an identity descriptor is missing fields
	// required by its mode. Caller error, never retried.
	CodeAuthConfiguration Code = "auth_configuration"

	// CodeMissingCredential means no usable token was found in the request
	// or the token store.
	CodeMissingCredential Code = "missing_credential"

	// CodeTokenExpired means a stored token expired and its provider cannot
	// be refreshed.
	CodeTokenExpired Code = "token_expired"

	// CodeUpstreamAuth means the identity back-end rejected a token request.
	CodeUpstreamAuth Code = "upstream_auth"

	// CodeSubscriptionAction means a subscription action failed validation or
	// was rejected by the remote API.
	CodeSubscriptionAction Code = "subscription_action"

	// CodeNotificationProcessing means a single notification entry could not
	// be processed. Recovered locally, never surfaced past the batch.
	CodeNotificationProcessing Code = "notification_processing"

	// CodeDuplicateRegistration means two triggers registered the same
	// resource-type key. Fatal at wiring time.
	CodeDuplicateRegistration Code = "duplicate_registration"

	// CodeNotFound means a requested record does not exist.
	CodeNotFound Code = "not_found"

	// CodeInvalidRequest means a malformed inbound request.
	CodeInvalidRequest Code = "invalid_request"

	// CodeInternal means an unexpected server-side failure.
	CodeInternal Code = "internal"
)

// AppError is the structured error used throughout the service.
type AppError struct {
	Code       Code
	HTTPStatus int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so sentinel comparisons survive WithError copies.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithError returns a copy of e wrapping cause. The sentinel itself is never
// mutated, so predefined errors stay safe for concurrent use.
func (e *AppError) WithError(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// New creates a new AppError.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{Code: code, HTTPStatus: httpStatus, Message: message}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// ErrAuthConfiguration is returned before any network I/O when a
	// descriptor fails mode validation.
	ErrAuthConfiguration = New(CodeAuthConfiguration, http.StatusBadRequest, "identity descriptor is missing fields required by its mode")

	// ErrMissingCredential is returned when no bearer token is available.
	ErrMissingCredential = New(CodeMissingCredential, http.StatusUnauthorized, "no usable credential found")

	// ErrTokenExpired is returned for expired tokens from non-refreshable providers.
	ErrTokenExpired = New(CodeTokenExpired, http.StatusUnauthorized, "stored token has expired and cannot be refreshed")

	// ErrUpstreamAuth is returned when the identity back-end rejects a request.
	ErrUpstreamAuth = New(CodeUpstreamAuth, http.StatusBadGateway, "identity back-end rejected the token request")

	// ErrSubscriptionAction is returned for invalid or rejected subscription actions.
	ErrSubscriptionAction = New(CodeSubscriptionAction, http.StatusBadRequest, "subscription action failed")

	// ErrNotificationProcessing marks a per-entry notification failure.
	ErrNotificationProcessing = New(CodeNotificationProcessing, http.StatusInternalServerError, "notification entry could not be processed")

	// ErrDuplicateRegistration is returned when a trigger key is registered twice.
	ErrDuplicateRegistration = New(CodeDuplicateRegistration, http.StatusConflict, "a trigger is already registered for this key")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = New(CodeNotFound, http.StatusNotFound, "not found")

	// ErrInvalidRequest is returned for malformed inbound requests.
	ErrInvalidRequest = New(CodeInvalidRequest, http.StatusBadRequest, "invalid request")

	// ErrInternal is the fallback server error.
	ErrInternal = New(CodeInternal, http.StatusInternalServerError, "internal error")
)

// ================================================================================
// Helpers
// ================================================================================

// AsAppError extracts an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// CodeOf returns err's code, or CodeInternal for unstructured errors.
func CodeOf(err error) Code {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatusOf returns the HTTP status for err, defaulting to 500.
func HTTPStatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is re-exports errors.Is so callers don't need both packages.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }
