package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a validation failure with field-level details.
// Fields maps a field name to its violation message so a client can fix
// every problem in a single round trip.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a new validation error from a field→message map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       int64
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %d", e.Resource, e.ID)
}

// AlreadyExistsError represents a uniqueness violation, such as an email
// already claimed by another user.
type AlreadyExistsError struct {
	Resource string
	Value    string
}

// NewAlreadyExistsError creates a new already exists error.
func NewAlreadyExistsError(resource, value string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, Value: value}
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Value)
}

// InternalError represents a storage or infrastructure failure with context.
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var aee *AlreadyExistsError
	return errors.As(err, &aee)
}
