package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals a missing session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists signals a create with an already used identifier.
	ErrSessionExists = errors.New("session already exists")
	// ErrInvalidStateTransition signals an illegal lifecycle operation.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrSessionAlreadyTerminal signals a mutation attempted on a completed or expired session.
	ErrSessionAlreadyTerminal = errors.New("session already terminal")
	// ErrBudgetInsufficient signals a token reservation that would exceed the budget.
	ErrBudgetInsufficient = errors.New("token budget insufficient")
	// ErrReservationNotFound signals a reconcile or release with an unknown handle.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrValidation signals an invalid request argument.
	ErrValidation = errors.New("validation failed")
	// ErrModelProviderError signals an LLM provider failure.
	ErrModelProviderError = errors.New("model provider error")
	// ErrRateLimited signals a rate limit hit at the provider.
	ErrRateLimited = errors.New("rate limited")
)

// BudgetInsufficientError wraps ErrBudgetInsufficient with the shortfall detail.
type BudgetInsufficientError struct {
	Needed    int
	Remaining int
}

func (e *BudgetInsufficientError) Error() string {
	return fmt.Sprintf("%s: need %d tokens, have %d", ErrBudgetInsufficient.Error(), e.Needed, e.Remaining)
}

func (e *BudgetInsufficientError) Unwrap() error { return ErrBudgetInsufficient }

// NewBudgetInsufficient creates a budget shortfall error.
func NewBudgetInsufficient(needed, remaining int) error {
	return &BudgetInsufficientError{Needed: needed, Remaining: remaining}
}

// TransitionError wraps ErrInvalidStateTransition with the attempted operation and current state.
type TransitionError struct {
	Op    string
	State string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", ErrInvalidStateTransition.Error(), e.Op, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// NewTransitionError creates an invalid transition error.
func NewTransitionError(op, state string) error {
	return &TransitionError{Op: op, State: state}
}
