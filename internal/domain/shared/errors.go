package shared

import (
	"errors"
	"fmt"
)

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

// PreconditionError reports a ship state that does not allow an action.
// Raised before any remote call is made.
type PreconditionError struct {
	*DomainError
	Action string
}

func NewPreconditionError(action, message string) *PreconditionError {
	return &PreconditionError{
		DomainError: &DomainError{Message: fmt.Sprintf("%s: %s", action, message)},
		Action:      action,
	}
}

// TransientError wraps a remote failure that may succeed if attempted later
// (network error, rate limit, server error, open circuit).
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

func NewTransientError(cause error) *TransientError {
	return &TransientError{Cause: cause}
}

// PlanningError reports that a behavior could not produce a plan because
// required world data is missing or inconsistent.
type PlanningError struct {
	*DomainError
	Behavior string
}

func NewPlanningError(behavior, message string) *PlanningError {
	return &PlanningError{
		DomainError: &DomainError{Message: message},
		Behavior:    behavior,
	}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsPrecondition reports whether err (or anything it wraps) is a PreconditionError
func IsPrecondition(err error) bool {
	var precondition *PreconditionError
	return errors.As(err, &precondition)
}
