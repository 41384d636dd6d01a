package governor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/domain/session"
	"github.com/proctorly/sessiond/internal/metrics"
)

// Sweep makes one pass over live sessions: pending expiries are applied and
// reservations older than the reservation TTL are dropped. Expiry is
// otherwise lazy, so the sweep bounds how long an exhausted but idle session
// can linger in a live state. The pass also refreshes the live-session gauge.
func (g *Service) Sweep(ctx context.Context) {
	sessions, err := g.repo.List(ctx)
	if err != nil {
		g.logger.Warn("sweep: failed to list sessions", zap.Error(err))
		return
	}

	counts := make(map[session.Status]int)
	var live []string
	for _, s := range sessions {
		counts[s.Status()]++
		if s.Status().Live() {
			live = append(live, s.ID())
		}
	}
	for _, st := range []session.Status{session.StatusCreated, session.StatusActive, session.StatusPaused} {
		metrics.SessionsLive.WithLabelValues(string(st)).Set(float64(counts[st]))
	}

	for _, id := range live {
		if ctx.Err() != nil {
			return
		}
		g.sweepOne(ctx, id)
	}
}

func (g *Service) sweepOne(ctx context.Context, id string) {
	_, err := g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		for _, r := range s.ReleaseStale(g.reservationTTL, now) {
			metrics.ReservationsReleasedTotal.WithLabelValues("stale").Inc()
			g.logger.Warn("released stale reservation",
				zap.String("session_id", id),
				zap.String("reservation_id", r.ID()),
				zap.Int("tokens", r.Tokens()),
				zap.Duration("age", now.Sub(r.CreatedAt())),
			)
		}
		return nil
	})
	if err != nil {
		g.logger.Warn("sweep: session pass failed", zap.String("session_id", id), zap.Error(err))
	}
}

// RunSweeper runs Sweep on the given interval until the context is canceled.
func (g *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Info("sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			g.Sweep(ctx)
		}
	}
}
