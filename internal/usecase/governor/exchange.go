package governor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
	"github.com/proctorly/sessiond/internal/metrics"
)

// BeginExchange opens the reserve phase: it holds the estimated cost against
// the token budget and returns the reservation handle. The session lock is
// released before the caller talks to the model provider; Finish or Abort
// settles the hold in a second critical section.
func (g *Service) BeginExchange(ctx context.Context, id string, estimate int) (string, session.Snapshot, error) {
	reservationID := uuid.NewString()
	snap, err := g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Reserve(reservationID, estimate, now); err != nil {
			if errors.Is(err, domain.ErrBudgetInsufficient) {
				metrics.ExchangesTotal.WithLabelValues("rejected").Inc()
			}
			return err
		}
		g.emit(ctx, id, domain.EventExchangeStarted, "exchange reservation placed", map[string]any{
			"reservation_id": reservationID,
			"estimate":       estimate,
		})
		return nil
	})
	if err != nil {
		return "", session.Snapshot{}, err
	}
	return reservationID, snap, nil
}

// FinishExchange settles a reservation with the provider-reported usage. The
// actual cost always lands on the ledger; if it pushed consumption past the
// budget the session expires right here.
func (g *Service) FinishExchange(ctx context.Context, id, reservationID string, inputTokens, outputTokens int) (session.Snapshot, error) {
	snap, err := g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Reconcile(reservationID, inputTokens, outputTokens); err != nil {
			return err
		}
		metrics.ExchangesTotal.WithLabelValues("completed").Inc()
		metrics.TokensConsumedTotal.WithLabelValues("input").Add(float64(inputTokens))
		metrics.TokensConsumedTotal.WithLabelValues("output").Add(float64(outputTokens))
		g.emit(ctx, id, domain.EventExchangeCompleted, "exchange settled", map[string]any{
			"reservation_id": reservationID,
			"input_tokens":   inputTokens,
			"output_tokens":  outputTokens,
		})
		// Settling may have pushed consumption past the budget.
		g.applyExpiry(ctx, s, now)
		return nil
	})
	if err != nil {
		return session.Snapshot{}, err
	}
	return snap, nil
}

// AbortExchange drops a reservation after a failed model call, restoring the
// held tokens to the budget.
func (g *Service) AbortExchange(ctx context.Context, id, reservationID string) error {
	_, err := g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Release(reservationID); err != nil {
			return err
		}
		metrics.ExchangesTotal.WithLabelValues("aborted").Inc()
		metrics.ReservationsReleasedTotal.WithLabelValues("abort").Inc()
		g.emit(ctx, id, domain.EventExchangeAborted, "exchange aborted", map[string]any{
			"reservation_id": reservationID,
		})
		return nil
	})
	return err
}
