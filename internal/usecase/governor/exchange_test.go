package governor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
)

func TestExchangeRoundTrip(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")

	resID, snap, err := h.svc.BeginExchange(ctx, "s1", 300)
	if err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	if resID == "" {
		t.Fatal("empty reservation id")
	}
	if snap.TokensReserved != 300 {
		t.Errorf("reserved = %d, want 300", snap.TokensReserved)
	}

	snap, err = h.svc.FinishExchange(ctx, "s1", resID, 120, 80)
	if err != nil {
		t.Fatalf("FinishExchange: %v", err)
	}
	if snap.TokensConsumed != 200 || snap.TokensReserved != 0 {
		t.Errorf("consumed=%d reserved=%d", snap.TokensConsumed, snap.TokensReserved)
	}
	if snap.InputTokens != 120 || snap.OutputTokens != 80 {
		t.Errorf("input=%d output=%d", snap.InputTokens, snap.OutputTokens)
	}
	if snap.ExchangeCount != 1 {
		t.Errorf("exchangeCount = %d", snap.ExchangeCount)
	}
}

func TestBeginExchangeBudgetRejection(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")

	if _, _, err := h.svc.BeginExchange(ctx, "s1", 900); err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	_, _, err := h.svc.BeginExchange(ctx, "s1", 200)
	if !errors.Is(err, domain.ErrBudgetInsufficient) {
		t.Fatalf("expected ErrBudgetInsufficient, got %v", err)
	}
	var be *domain.BudgetInsufficientError
	if !errors.As(err, &be) {
		t.Fatalf("expected detail error, got %v", err)
	}
	if be.Remaining != 100 {
		t.Errorf("remaining = %d, want 100", be.Remaining)
	}
}

func TestAbortExchangeRestoresBudget(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")

	resID, _, err := h.svc.BeginExchange(ctx, "s1", 1000)
	if err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	if err := h.svc.AbortExchange(ctx, "s1", resID); err != nil {
		t.Fatalf("AbortExchange: %v", err)
	}

	snap, err := h.svc.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TokensConsumed != 0 || snap.TokensReserved != 0 {
		t.Errorf("consumed=%d reserved=%d", snap.TokensConsumed, snap.TokensReserved)
	}

	if _, _, err := h.svc.BeginExchange(ctx, "s1", 1000); err != nil {
		t.Errorf("BeginExchange after abort: %v", err)
	}
}

func TestFinishExchangeOvershootExpires(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")

	resID, _, err := h.svc.BeginExchange(ctx, "s1", 100)
	if err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	snap, err := h.svc.FinishExchange(ctx, "s1", resID, 800, 400)
	if err != nil {
		t.Fatalf("FinishExchange: %v", err)
	}
	if snap.TokensConsumed != 1200 {
		t.Errorf("consumed = %d, want 1200", snap.TokensConsumed)
	}
	if snap.Status != session.StatusExpired || snap.ExpiryReason != session.ReasonTokens {
		t.Errorf("status=%s reason=%s", snap.Status, snap.ExpiryReason)
	}
	if h.repo.status(t, "s1") != session.StatusExpired {
		t.Error("expiry not persisted")
	}
}

func TestBeginExchangeRequiresActive(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	if _, err := h.svc.Create(ctx, CreateParams{ID: "s1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := h.svc.BeginExchange(ctx, "s1", 100); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestSweepReleasesStaleReservations(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")

	if _, _, err := h.svc.BeginExchange(ctx, "s1", 400); err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}

	// Within the 5m reservation TTL: the hold survives.
	h.clk.Advance(time.Minute)
	h.svc.Sweep(ctx)
	snap, err := h.svc.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TokensReserved != 400 {
		t.Fatalf("reserved = %d after early sweep", snap.TokensReserved)
	}

	h.clk.Advance(10 * time.Minute)
	h.svc.Sweep(ctx)
	snap, err = h.svc.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TokensReserved != 0 {
		t.Errorf("reserved = %d after stale sweep, want 0", snap.TokensReserved)
	}
	if snap.TokensConsumed != 0 {
		t.Errorf("consumed = %d, want 0", snap.TokensConsumed)
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.startSession(t, "s1")
	h.startSession(t, "s2")
	if _, err := h.svc.Complete(ctx, "s2"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	h.clk.Advance(2 * time.Hour)
	h.svc.Sweep(ctx)

	if h.repo.status(t, "s1") != session.StatusExpired {
		t.Errorf("s1 = %s, want expired", h.repo.status(t, "s1"))
	}
	if h.repo.status(t, "s2") != session.StatusCompleted {
		t.Errorf("s2 = %s, want completed", h.repo.status(t, "s2"))
	}
}

func TestEventsRequireExistingSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	if _, err := h.svc.Events(ctx, "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	h.startSession(t, "s1")
	events, err := h.svc.Events(ctx, "s1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}
}
