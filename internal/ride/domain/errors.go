package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the ride service. Handlers map these to
// HTTP status codes; use errors.Is to test for them.
var (
	ErrNotFound  = errors.New("ride not found")
	ErrForbidden = errors.New("caller is not allowed to perform this operation")
	ErrConflict  = errors.New("operation lost a concurrent update race")
	ErrTimeout   = errors.New("upstream dependency exceeded its deadline")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation invoked from a lifecycle state
// that does not allow it. It always names both.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %q not allowed from state %s", e.Op, e.Status)
}
