package session

import (
	"errors"
	"testing"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, limit time.Duration, budget int) *Session {
	t.Helper()
	s, err := New("sess-1", limit, budget, t0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func startedSession(t *testing.T, limit time.Duration, budget int) *Session {
	t.Helper()
	s := newTestSession(t, limit, budget)
	if err := s.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		limit  time.Duration
		budget int
	}{
		{"empty id", "", time.Hour, 1000},
		{"zero limit", "s", 0, 1000},
		{"negative limit", "s", -time.Minute, 1000},
		{"zero budget", "s", time.Hour, 0},
		{"negative budget", "s", time.Hour, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.id, tt.limit, tt.budget, t0); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	s := newTestSession(t, time.Hour, 1000)
	if s.Status() != StatusCreated {
		t.Fatalf("expected created, got %s", s.Status())
	}

	if err := s.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Status() != StatusActive {
		t.Fatalf("expected active, got %s", s.Status())
	}
	if !s.StartedAt().Equal(t0) {
		t.Errorf("startedAt = %v, want %v", s.StartedAt(), t0)
	}

	if err := s.Pause(t0.Add(5 * time.Minute)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if s.Status() != StatusPaused {
		t.Fatalf("expected paused, got %s", s.Status())
	}

	if err := s.Resume(t0.Add(8 * time.Minute)); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Status() != StatusActive {
		t.Fatalf("expected active, got %s", s.Status())
	}
	if s.AccumulatedPaused() != 3*time.Minute {
		t.Errorf("accumulatedPaused = %v, want 3m", s.AccumulatedPaused())
	}

	if err := s.Complete(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
	if s.EndedAt().IsZero() {
		t.Error("endedAt not stamped")
	}
}

func TestIllegalTransitions(t *testing.T) {
	t.Run("start twice", func(t *testing.T) {
		s := startedSession(t, time.Hour, 1000)
		if err := s.Start(t0); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("pause before start", func(t *testing.T) {
		s := newTestSession(t, time.Hour, 1000)
		if err := s.Pause(t0); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("pause while paused", func(t *testing.T) {
		s := startedSession(t, time.Hour, 1000)
		if err := s.Pause(t0.Add(time.Minute)); err != nil {
			t.Fatalf("Pause: %v", err)
		}
		if err := s.Pause(t0.Add(2 * time.Minute)); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("resume while active", func(t *testing.T) {
		s := startedSession(t, time.Hour, 1000)
		if err := s.Resume(t0.Add(time.Minute)); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("complete before start", func(t *testing.T) {
		s := newTestSession(t, time.Hour, 1000)
		if err := s.Complete(t0); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("transition error carries op and state", func(t *testing.T) {
		s := newTestSession(t, time.Hour, 1000)
		err := s.Pause(t0)
		var te *domain.TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("expected TransitionError, got %v", err)
		}
		if te.Op != "pause" || te.State != "created" {
			t.Errorf("unexpected detail: op=%q state=%q", te.Op, te.State)
		}
	})
}

func TestCompleteIdempotent(t *testing.T) {
	s := startedSession(t, time.Hour, 1000)
	end := t0.Add(10 * time.Minute)
	if err := s.Complete(end); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := s.Complete(end.Add(time.Minute)); err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !s.EndedAt().Equal(end) {
		t.Errorf("endedAt moved on repeated complete: %v", s.EndedAt())
	}
}

func TestCompleteAfterExpiryRejected(t *testing.T) {
	s := startedSession(t, 10*time.Minute, 1000)
	if _, expired := s.Evaluate(t0.Add(11 * time.Minute)); !expired {
		t.Fatal("expected expiry")
	}
	if err := s.Complete(t0.Add(12 * time.Minute)); !errors.Is(err, domain.ErrSessionAlreadyTerminal) {
		t.Errorf("expected ErrSessionAlreadyTerminal, got %v", err)
	}
	if s.Status() != StatusExpired {
		t.Errorf("status changed to %s", s.Status())
	}
}

func TestCompleteFromPausedFoldsOpenPause(t *testing.T) {
	s := startedSession(t, time.Hour, 1000)
	if err := s.Pause(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Complete(t0.Add(30 * time.Minute)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// 30m wall, 20m paused.
	if got := s.ElapsedActive(t0.Add(2 * time.Hour)); got != 10*time.Minute {
		t.Errorf("elapsed = %v, want 10m", got)
	}
	if !s.PausedAt().IsZero() {
		t.Error("pausedAt not cleared on terminal transition")
	}
}

func TestEvaluateTimeExpiry(t *testing.T) {
	s := startedSession(t, 30*time.Minute, 1000)

	if reason, expired := s.Evaluate(t0.Add(29 * time.Minute)); expired {
		t.Fatalf("expired early with reason %s", reason)
	}

	reason, expired := s.Evaluate(t0.Add(30 * time.Minute))
	if !expired || reason != ReasonTime {
		t.Fatalf("expected time expiry, got expired=%v reason=%s", expired, reason)
	}
	if s.Status() != StatusExpired || s.ExpiryReason() != ReasonTime {
		t.Errorf("status=%s reason=%s", s.Status(), s.ExpiryReason())
	}
}

func TestEvaluateTerminalNoop(t *testing.T) {
	s := startedSession(t, 10*time.Minute, 1000)
	if err := s.Complete(t0.Add(5 * time.Minute)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reason, expired := s.Evaluate(t0.Add(time.Hour)); expired {
		t.Errorf("terminal session expired again: %s", reason)
	}
	if s.Status() != StatusCompleted {
		t.Errorf("status = %s", s.Status())
	}
}

func TestEvaluateDropsReservationsOnExpiry(t *testing.T) {
	s := startedSession(t, 10*time.Minute, 1000)
	if err := s.Reserve("res-1", 100, t0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, expired := s.Evaluate(t0.Add(10 * time.Minute)); !expired {
		t.Fatal("expected expiry")
	}
	if got := s.TokensReserved(); got != 0 {
		t.Errorf("tokensReserved = %d after expiry, want 0", got)
	}
}

func TestExtensions(t *testing.T) {
	t.Run("time extension pushes expiry out", func(t *testing.T) {
		s := startedSession(t, 30*time.Minute, 1000)
		if err := s.ExtendTime(15 * time.Minute); err != nil {
			t.Fatalf("ExtendTime: %v", err)
		}
		if _, expired := s.Evaluate(t0.Add(40 * time.Minute)); expired {
			t.Error("expired despite extension")
		}
		if _, expired := s.Evaluate(t0.Add(45 * time.Minute)); !expired {
			t.Error("did not expire at extended limit")
		}
	})

	t.Run("token extension raises ceiling", func(t *testing.T) {
		s := startedSession(t, time.Hour, 100)
		if err := s.Reserve("r", 100, t0); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if err := s.Reconcile("r", 60, 40); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if err := s.ExtendTokens(50); err != nil {
			t.Fatalf("ExtendTokens: %v", err)
		}
		if _, expired := s.Evaluate(t0.Add(time.Minute)); expired {
			t.Error("expired despite token extension")
		}
		if got := s.RemainingTokens(); got != 50 {
			t.Errorf("remaining = %d, want 50", got)
		}
	})

	t.Run("no revival of terminal sessions", func(t *testing.T) {
		s := startedSession(t, 10*time.Minute, 1000)
		if _, expired := s.Evaluate(t0.Add(10 * time.Minute)); !expired {
			t.Fatal("expected expiry")
		}
		if err := s.ExtendTime(time.Hour); !errors.Is(err, domain.ErrSessionAlreadyTerminal) {
			t.Errorf("ExtendTime: expected ErrSessionAlreadyTerminal, got %v", err)
		}
		if err := s.ExtendTokens(1000); !errors.Is(err, domain.ErrSessionAlreadyTerminal) {
			t.Errorf("ExtendTokens: expected ErrSessionAlreadyTerminal, got %v", err)
		}
		if s.Status() != StatusExpired {
			t.Errorf("status = %s", s.Status())
		}
	})

	t.Run("non-positive extensions rejected", func(t *testing.T) {
		s := startedSession(t, time.Hour, 1000)
		if err := s.ExtendTime(0); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ExtendTime(0): got %v", err)
		}
		if err := s.ExtendTokens(-10); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ExtendTokens(-10): got %v", err)
		}
	})
}

func TestDumpReconstructRoundTrip(t *testing.T) {
	s := startedSession(t, time.Hour, 1000)
	if err := s.Pause(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Resume(t0.Add(15 * time.Minute)); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := s.Reserve("res-1", 120, t0.Add(16*time.Minute)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := s.Reconcile("res-1", 70, 50); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := s.Reserve("res-2", 90, t0.Add(17*time.Minute)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	s.SetLastWarning(LevelWarning)

	got := Reconstruct(s.Dump())

	now := t0.Add(20 * time.Minute)
	if got.Status() != s.Status() {
		t.Errorf("status = %s, want %s", got.Status(), s.Status())
	}
	if got.ElapsedActive(now) != s.ElapsedActive(now) {
		t.Errorf("elapsed = %v, want %v", got.ElapsedActive(now), s.ElapsedActive(now))
	}
	if got.TokensConsumed() != 120 || got.TokensReserved() != 90 {
		t.Errorf("consumed=%d reserved=%d", got.TokensConsumed(), got.TokensReserved())
	}
	if got.InputTokens() != 70 || got.OutputTokens() != 50 {
		t.Errorf("input=%d output=%d", got.InputTokens(), got.OutputTokens())
	}
	if got.ExchangeCount() != 1 {
		t.Errorf("exchangeCount = %d", got.ExchangeCount())
	}
	if got.LastWarning() != LevelWarning {
		t.Errorf("lastWarning = %s", got.LastWarning())
	}
	if err := got.Release("res-2"); err != nil {
		t.Errorf("Release on reconstructed session: %v", err)
	}
}
