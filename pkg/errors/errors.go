// Package errors defines the typed errors services return and the HTTP
// status and code each maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is implemented by every error with a defined HTTP mapping
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// kind carries the HTTP mapping shared by all errors of one type
type kind struct {
	status int
	code   string
}

func (k kind) HTTPStatus() int { return k.status }
func (k kind) Code() string    { return k.code }

var (
	kindNotFound   = kind{http.StatusNotFound, "NOT_FOUND"}
	kindBadRequest = kind{http.StatusBadRequest, "BAD_REQUEST"}
	kindForbidden  = kind{http.StatusForbidden, "FORBIDDEN"}
	kindConflict   = kind{http.StatusConflict, "CONFLICT"}
)

// NotFoundError reports a missing addon, bundle, project or row
type NotFoundError struct {
	kind
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{kind: kindNotFound, Resource: resource, ID: id}
}

// ValidationError is a rejected request. Details carries structured
// per-field errors such as settings validation results.
type ValidationError struct {
	kind
	Field   string
	Message string
	Details any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError reports a bad value for one field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{kind: kindBadRequest, Field: field, Message: message}
}

// NewBadRequestError reports a request that cannot be carried out
func NewBadRequestError(format string, args ...any) *ValidationError {
	return &ValidationError{kind: kindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidPayloadError wraps structured validation details
func NewInvalidPayloadError(message string, details any) *ValidationError {
	return &ValidationError{kind: kindBadRequest, Message: message, Details: details}
}

// PermissionError reports a user lacking the rights for an action
type PermissionError struct {
	kind
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: cannot %s %s", e.Action, e.Resource)
}

// NewPermissionError creates a new PermissionError
func NewPermissionError(action, resource string) *PermissionError {
	return &PermissionError{kind: kindForbidden, Action: action, Resource: resource}
}

// ConflictError reports a unique-key violation
type ConflictError struct {
	kind
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field == "" || e.Value == "" {
		return e.Resource + " already exists"
	}
	return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
}

// NewConflictError creates a new ConflictError
func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{kind: kindConflict, Resource: resource, Field: field, Value: value}
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool { return is[*NotFoundError](err) }

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool { return is[*ValidationError](err) }

// IsPermission checks if an error is a PermissionError
func IsPermission(err error) bool { return is[*PermissionError](err) }

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool { return is[*ConflictError](err) }

// GetHTTPStatus returns the status for err, 500 for errors without a mapping
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the code for err, UNKNOWN_ERROR without a mapping
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse is the body of an error reply
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	resp := ErrorResponse{Code: GetErrorCode(err), Message: err.Error()}
	var validation *ValidationError
	if errors.As(err, &validation) {
		resp.Details = validation.Details
	}
	return resp
}
