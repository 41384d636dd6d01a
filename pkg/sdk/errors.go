package sessiond

import (
	"errors"

	"github.com/proctorly/sessiond/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrSessionNotFound        = domain.ErrSessionNotFound
	ErrSessionExists          = domain.ErrSessionExists
	ErrInvalidStateTransition = domain.ErrInvalidStateTransition
	ErrSessionAlreadyTerminal = domain.ErrSessionAlreadyTerminal
	ErrBudgetInsufficient     = domain.ErrBudgetInsufficient
	ErrReservationNotFound    = domain.ErrReservationNotFound
	ErrValidation             = domain.ErrValidation
	ErrModelProviderError     = domain.ErrModelProviderError
	ErrRateLimited            = domain.ErrRateLimited
)

// BudgetShortfall extracts the token shortfall detail from an
// ErrBudgetInsufficient error. ok is false for any other error.
func BudgetShortfall(err error) (needed, remaining int, ok bool) {
	var be *domain.BudgetInsufficientError
	if errors.As(err, &be) {
		return be.Needed, be.Remaining, true
	}
	return 0, 0, false
}
