package session

import (
	"fmt"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
)

// Reserve places a provisional hold of estimate tokens under the given
// handle. The hold counts against the budget alongside consumed tokens, so
// concurrent exchanges cannot jointly oversubscribe it. Only an active
// session may open an exchange.
func (s *Session) Reserve(reservationID string, estimate int, now time.Time) error {
	if s.state != StatusActive {
		if s.state.Terminal() {
			return fmt.Errorf("reserve: %w", domain.ErrSessionAlreadyTerminal)
		}
		return domain.NewTransitionError("reserve", string(s.state))
	}
	if reservationID == "" {
		return fmt.Errorf("reservation id is required: %w", domain.ErrValidation)
	}
	if estimate <= 0 {
		return fmt.Errorf("reservation estimate must be positive: %w", domain.ErrValidation)
	}
	available := s.tokenBudget - s.tokensConsumed - s.TokensReserved()
	if estimate > available {
		return domain.NewBudgetInsufficient(estimate, available)
	}
	s.reservations = append(s.reservations, Reservation{
		id:        reservationID,
		tokens:    estimate,
		createdAt: now,
	})
	return nil
}

// Reconcile replaces a reservation with the actual cost of the exchange.
// The actual cost is always recorded, even when it exceeds what was reserved;
// an overshoot past the budget is caught by the next Evaluate.
func (s *Session) Reconcile(reservationID string, inputTokens, outputTokens int) error {
	if s.state.Terminal() {
		return fmt.Errorf("reconcile: %w", domain.ErrSessionAlreadyTerminal)
	}
	if inputTokens < 0 || outputTokens < 0 {
		return fmt.Errorf("token counts must be non-negative: %w", domain.ErrValidation)
	}
	if !s.removeReservation(reservationID) {
		return fmt.Errorf("reconcile %q: %w", reservationID, domain.ErrReservationNotFound)
	}
	total := inputTokens + outputTokens
	s.tokensConsumed += total
	s.inputTokens += inputTokens
	s.outputTokens += outputTokens
	s.exchangeCount++
	s.exchangeHistory = append(s.exchangeHistory, total)
	return nil
}

// Release drops a reservation without consuming anything (failed or
// abandoned exchange).
func (s *Session) Release(reservationID string) error {
	if !s.removeReservation(reservationID) {
		return fmt.Errorf("release %q: %w", reservationID, domain.ErrReservationNotFound)
	}
	return nil
}

// ReleaseStale drops reservations older than maxAge and returns them.
// Safety valve for exchanges that never reconciled.
func (s *Session) ReleaseStale(maxAge time.Duration, now time.Time) []Reservation {
	var released []Reservation
	kept := s.reservations[:0]
	for _, r := range s.reservations {
		if now.Sub(r.createdAt) > maxAge {
			released = append(released, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.reservations = kept
	return released
}

func (s *Session) removeReservation(id string) bool {
	for i, r := range s.reservations {
		if r.id == id {
			s.reservations = append(s.reservations[:i], s.reservations[i+1:]...)
			return true
		}
	}
	return false
}

// TokenBudget returns the current token ceiling.
func (s *Session) TokenBudget() int { return s.tokenBudget }

// TokensConsumed returns the settled token total.
func (s *Session) TokensConsumed() int { return s.tokensConsumed }

// InputTokens returns the settled prompt-side total.
func (s *Session) InputTokens() int { return s.inputTokens }

// OutputTokens returns the settled completion-side total.
func (s *Session) OutputTokens() int { return s.outputTokens }

// TokensReserved returns the sum of outstanding holds.
func (s *Session) TokensReserved() int {
	total := 0
	for _, r := range s.reservations {
		total += r.tokens
	}
	return total
}

// Reservations returns the outstanding holds.
func (s *Session) Reservations() []Reservation {
	out := make([]Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

// RemainingTokens returns budget minus consumed, floored at zero. Holds are
// not subtracted here: they are transient and settle into consumed or vanish.
func (s *Session) RemainingTokens() int {
	remaining := s.tokenBudget - s.tokensConsumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AvailableTokens returns what a new reservation could still hold.
func (s *Session) AvailableTokens() int {
	available := s.tokenBudget - s.tokensConsumed - s.TokensReserved()
	if available < 0 {
		return 0
	}
	return available
}

// TokenWarning returns the warning tier for the remaining token fraction.
func (s *Session) TokenWarning() Level {
	return levelForFraction(float64(s.RemainingTokens()) / float64(s.tokenBudget))
}

// ExchangeCount returns the number of settled exchanges.
func (s *Session) ExchangeCount() int { return s.exchangeCount }

// AvgTokensPerExchange returns the mean settled cost of an exchange, or zero
// before the first one.
func (s *Session) AvgTokensPerExchange() float64 {
	if s.exchangeCount == 0 {
		return 0
	}
	return float64(s.tokensConsumed) / float64(s.exchangeCount)
}

// EstimateExchangesRemaining projects how many more exchanges the remaining
// tokens cover at the observed average cost. Reports false before any
// exchange has settled.
func (s *Session) EstimateExchangesRemaining() (int, bool) {
	avg := s.AvgTokensPerExchange()
	if avg <= 0 {
		return 0, false
	}
	return int(float64(s.RemainingTokens()) / avg), true
}
