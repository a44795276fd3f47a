package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeBadRequest   ErrorType = "bad_request"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when their types match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error.
// Call it on errors built with NewDomainError, never on the shared package-level values.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrAccountNotFound = NewDomainError(ErrorTypeNotFound, "User not found", nil)

	// Request Errors
	ErrMalformedBody    = NewDomainError(ErrorTypeBadRequest, "Malformed request body", nil)
	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "Validation failed", nil)
	ErrInvalidAccountID = NewDomainError(ErrorTypeValidation, "User id must be a positive integer", nil)

	// Authentication Errors. Session failures carry no cause so callers cannot tell them apart.
	ErrUnauthenticated      = NewDomainError(ErrorTypeUnauthorized, "Not authenticated", nil)
	ErrInvalidCredentials   = NewDomainError(ErrorTypeUnauthorized, "Invalid authentication credentials", nil)
	ErrInvalidIdentityToken = NewDomainError(ErrorTypeUnauthorized, "Invalid Google token", nil)

	// Permission Errors
	ErrDomainNotAllowed = NewDomainError(ErrorTypeForbidden, "Email domain not allowed. Please contact an administrator.", nil)
	ErrAdminRequired    = NewDomainError(ErrorTypeForbidden, "Not enough permissions", nil)
	ErrNotProfileOwner  = NewDomainError(ErrorTypeForbidden, "Not authorized to access this user's profile", nil)
	ErrNotProfileEditor = NewDomainError(ErrorTypeForbidden, "Not authorized to update this user's profile", nil)

	// Conflict Errors
	ErrAccountChanged = NewDomainError(ErrorTypeConflict, "Account changed during sign-in, please try again", nil)
)

// InvalidIdentityToken builds the error returned for a rejected provider token
func InvalidIdentityToken(reason string, err error) *DomainError {
	return NewDomainError(ErrorTypeUnauthorized, "Invalid Google token: "+reason, err)
}

// InvalidField builds a validation error for a single field
func InvalidField(field, message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil).WithDetail(field, message)
}

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsBadRequestError checks if an error is a malformed request error
func IsBadRequestError(err error) bool {
	return GetErrorType(err) == ErrorTypeBadRequest
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
