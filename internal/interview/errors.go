package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for an interview id.
	ErrNotFound = errors.New("interview not found")
	// ErrInvalidState is returned when an operation is not permitted for the current status.
	ErrInvalidState = errors.New("invalid interview state")
	// ErrAlreadyCompleted is returned when a finished interview is opened or mutated again.
	ErrAlreadyCompleted = fmt.Errorf("%w: interview already completed", ErrInvalidState)
	// ErrBudgetExhausted is returned when a question would exceed maxQuestions.
	ErrBudgetExhausted = fmt.Errorf("%w: question budget exhausted", ErrInvalidState)
	// ErrInvalidConfig is returned for unusable interview configuration.
	ErrInvalidConfig = errors.New("invalid interview configuration")
)

// TransitionError describes an illegal status move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	if e.From == StatusCompleted {
		return ErrAlreadyCompleted
	}
	return ErrInvalidState
}
