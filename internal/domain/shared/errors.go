package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Validation error

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// State import errors

// StateFieldError reports a missing or mistyped field while importing exported state
type StateFieldError struct {
	Field    string
	Expected string
	Got      any
}

func (e *StateFieldError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("state field %q missing (expected %s)", e.Field, e.Expected)
	}
	return fmt.Sprintf("state field %q: expected %s, got %T", e.Field, e.Expected, e.Got)
}
