// Package governor enforces per-session time and token budgets. It owns the
// lifecycle state machine, serializes ledger mutations per session, records
// audit events, and applies automatic expiry.
package governor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/clock"
	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
	"github.com/proctorly/sessiond/internal/metrics"
)

// Defaults fills in budgets omitted at creation.
type Defaults struct {
	TimeLimit   time.Duration
	TokenBudget int
}

// Service is the session governor.
type Service struct {
	repo           Repository
	events         EventLog
	clk            clock.Clock
	logger         *zap.Logger
	locks          *lockTable
	defaults       Defaults
	reservationTTL time.Duration
}

// New creates a governor service.
func New(repo Repository, events EventLog, clk clock.Clock, defaults Defaults, reservationTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:           repo,
		events:         events,
		clk:            clk,
		logger:         logger,
		locks:          newLockTable(),
		defaults:       defaults,
		reservationTTL: reservationTTL,
	}
}

// CreateParams are the knobs for a new session. Zero values fall back to the
// configured defaults; an empty ID gets a generated UUID.
type CreateParams struct {
	ID          string
	TimeLimit   time.Duration
	TokenBudget int
}

// Create registers a new session in the created state.
func (g *Service) Create(ctx context.Context, p CreateParams) (session.Snapshot, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	limit := p.TimeLimit
	if limit == 0 {
		limit = g.defaults.TimeLimit
	}
	budget := p.TokenBudget
	if budget == 0 {
		budget = g.defaults.TokenBudget
	}

	now := g.clk.Now()
	s, err := session.New(id, limit, budget, now)
	if err != nil {
		return session.Snapshot{}, err
	}

	unlock := g.locks.acquire(id)
	defer unlock()

	if err := g.repo.Create(ctx, s); err != nil {
		return session.Snapshot{}, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusCreated), "").Inc()
	g.emit(ctx, id, domain.EventSessionCreated, "session created", map[string]any{
		"time_limit_sec": int(limit.Seconds()),
		"token_budget":   budget,
	})
	return s.Snapshot(now), nil
}

// Start begins the session clock.
func (g *Service) Start(ctx context.Context, id string) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Start(now); err != nil {
			return err
		}
		metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusActive), "").Inc()
		g.emit(ctx, id, domain.EventSessionStarted, "session started", nil)
		return nil
	})
}

// Pause stops the clock without ending the session.
func (g *Service) Pause(ctx context.Context, id string) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Pause(now); err != nil {
			return err
		}
		metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusPaused), "").Inc()
		g.emit(ctx, id, domain.EventSessionPaused, "session paused", nil)
		return nil
	})
}

// Resume restarts the clock of a paused session.
func (g *Service) Resume(ctx context.Context, id string) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.Resume(now); err != nil {
			return err
		}
		metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusActive), "").Inc()
		g.emit(ctx, id, domain.EventSessionResumed, "session resumed", nil)
		return nil
	})
}

// Complete ends the session normally. Idempotent when already completed.
func (g *Service) Complete(ctx context.Context, id string) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		wasCompleted := s.Status() == session.StatusCompleted
		if err := s.Complete(now); err != nil {
			return err
		}
		if !wasCompleted {
			metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusCompleted), "").Inc()
			g.emit(ctx, id, domain.EventSessionCompleted, "session completed", map[string]any{
				"elapsed_sec":     int(s.ElapsedActive(now).Seconds()),
				"tokens_consumed": s.TokensConsumed(),
			})
		}
		return nil
	})
}

// ExtendTime grants extra wall-clock budget to a live session.
func (g *Service) ExtendTime(ctx context.Context, id string, extra time.Duration) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.ExtendTime(extra); err != nil {
			return err
		}
		g.emit(ctx, id, domain.EventTimeExtended, "time limit extended", map[string]any{
			"extra_sec":          int(extra.Seconds()),
			"new_time_limit_sec": int(s.TimeLimit().Seconds()),
		})
		return nil
	})
}

// ExtendTokens grants extra token budget to a live session.
func (g *Service) ExtendTokens(ctx context.Context, id string, extra int) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error {
		if err := s.ExtendTokens(extra); err != nil {
			return err
		}
		g.emit(ctx, id, domain.EventTokensExtended, "token budget extended", map[string]any{
			"extra_tokens":     extra,
			"new_token_budget": s.TokenBudget(),
		})
		return nil
	})
}

// Snapshot evaluates expiry and returns the current ledger view. The snapshot
// reports whether the overall warning tier changed since the last look, so
// callers can surface each tier once.
func (g *Service) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	return g.mutate(ctx, id, func(s *session.Session, now time.Time) error { return nil })
}

// Events returns the audit trail of a session, oldest first.
func (g *Service) Events(ctx context.Context, id string) ([]domain.Event, error) {
	if _, err := g.repo.Load(ctx, id); err != nil {
		return nil, err
	}
	return g.events.List(ctx, id)
}

// List returns snapshots of all sessions, optionally filtered by status.
func (g *Service) List(ctx context.Context, status session.Status) ([]session.Snapshot, error) {
	sessions, err := g.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := g.clk.Now()
	out := make([]session.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		if status != "" && s.Status() != status {
			continue
		}
		out = append(out, s.Snapshot(now))
	}
	return out, nil
}

// mutate runs a ledger mutation under the session lock: load, apply pending
// expiry, run op, refresh the warning marker, save. The evaluate result and
// warning marker are persisted even when op fails.
func (g *Service) mutate(ctx context.Context, id string, op func(s *session.Session, now time.Time) error) (session.Snapshot, error) {
	unlock := g.locks.acquire(id)
	defer unlock()

	s, err := g.repo.Load(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}

	now := g.clk.Now()
	g.applyExpiry(ctx, s, now)

	opErr := op(s, now)

	snap := s.Snapshot(now)
	if !s.Status().Terminal() && snap.Warning != s.LastWarning() {
		snap.WarningChanged = true
		s.SetLastWarning(snap.Warning)
	}

	if err := g.repo.Save(ctx, s); err != nil {
		if opErr != nil {
			g.logger.Error("failed to persist session after rejected operation",
				zap.String("session_id", id), zap.Error(err))
			return session.Snapshot{}, opErr
		}
		return session.Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	if opErr != nil {
		return session.Snapshot{}, opErr
	}
	return snap, nil
}

// applyExpiry runs the automatic expiry check and records its side effects.
func (g *Service) applyExpiry(ctx context.Context, s *session.Session, now time.Time) {
	held := s.TokensReserved()
	reason, expired := s.Evaluate(now)
	if !expired {
		return
	}
	metrics.SessionTransitionsTotal.WithLabelValues(string(session.StatusExpired), string(reason)).Inc()
	if held > 0 {
		metrics.ReservationsReleasedTotal.WithLabelValues("terminal").Inc()
	}
	g.emit(ctx, s.ID(), domain.EventSessionExpired, "session expired", map[string]any{
		"reason":          string(reason),
		"elapsed_sec":     int(s.ElapsedActive(now).Seconds()),
		"tokens_consumed": s.TokensConsumed(),
	})
	g.logger.Info("session expired",
		zap.String("session_id", s.ID()),
		zap.String("reason", string(reason)),
	)
}

// emit appends an audit event. Audit failures are logged, never fatal.
func (g *Service) emit(ctx context.Context, sessionID string, typ domain.EventType, desc string, data map[string]any) {
	ev := domain.Event{
		SessionID:   sessionID,
		Type:        typ,
		Description: desc,
		Data:        data,
		CreatedAt:   g.clk.Now(),
	}
	if err := g.events.Append(ctx, ev); err != nil {
		g.logger.Warn("failed to append audit event",
			zap.String("session_id", sessionID),
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}
