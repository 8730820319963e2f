package tour

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRoute     = NewValidationError("route must contain at least one stop")
	ErrSessionStarted = errors.New("session already started")
	ErrSessionEnded   = errors.New("session has ended")
)

// ValidationError reports invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a new ValidationError.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// ConflictError reports an operation that conflicts with current state.
// Err, when set, is the sentinel describing the state.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

// NewConflictError creates a new ConflictError.
func NewConflictError(msg string) *ConflictError {
	return &ConflictError{Message: msg}
}

// Conflict wraps a state sentinel such as ErrSessionEnded in a ConflictError.
func Conflict(sentinel error) *ConflictError {
	return &ConflictError{Message: sentinel.Error(), Err: sentinel}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
