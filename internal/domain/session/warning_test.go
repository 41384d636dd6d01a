package session

import (
	"testing"
	"time"
)

func TestLevelForFraction(t *testing.T) {
	tests := []struct {
		frac float64
		want Level
	}{
		{1.0, LevelNormal},
		{0.50, LevelNormal},
		{0.2501, LevelNormal},
		{0.25, LevelWarning},
		{0.11, LevelWarning},
		{0.10, LevelCritical},
		{0.06, LevelCritical},
		{0.05, LevelUrgent},
		{0.001, LevelUrgent},
		{0.0, LevelExpired},
		{-0.1, LevelExpired},
	}
	for _, tt := range tests {
		if got := levelForFraction(tt.frac); got != tt.want {
			t.Errorf("levelForFraction(%v) = %s, want %s", tt.frac, got, tt.want)
		}
	}
}

func TestTimeWarningTiers(t *testing.T) {
	// 100 minute limit makes the fractions easy to hit exactly.
	limit := 100 * time.Minute
	tests := []struct {
		elapsed time.Duration
		want    Level
	}{
		{0, LevelNormal},
		{74 * time.Minute, LevelNormal},
		{75 * time.Minute, LevelWarning},
		{90 * time.Minute, LevelCritical},
		{95 * time.Minute, LevelUrgent},
		{99*time.Minute + 59*time.Second, LevelUrgent},
	}
	for _, tt := range tests {
		s := startedSession(t, limit, 1000)
		if got := s.TimeWarning(t0.Add(tt.elapsed)); got != tt.want {
			t.Errorf("elapsed %v: warning = %s, want %s", tt.elapsed, got, tt.want)
		}
	}
}

func TestTimeWarningExpired(t *testing.T) {
	s := startedSession(t, 10*time.Minute, 1000)
	if _, expired := s.Evaluate(t0.Add(10 * time.Minute)); !expired {
		t.Fatal("expected expiry")
	}
	if got := s.TimeWarning(t0.Add(11 * time.Minute)); got != LevelExpired {
		t.Errorf("warning = %s, want expired", got)
	}
}

func TestTokenWarningTiers(t *testing.T) {
	consume := func(t *testing.T, s *Session, n int) {
		t.Helper()
		if err := s.Reserve("r", n, t0); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if err := s.Reconcile("r", n, 0); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
	}

	tests := []struct {
		consumed int
		want     Level
	}{
		{0, LevelNormal},
		{700, LevelNormal},
		{750, LevelWarning},
		{890, LevelWarning},
		{900, LevelCritical},
		{950, LevelUrgent},
		{999, LevelUrgent},
	}
	for _, tt := range tests {
		s := startedSession(t, time.Hour, 1000)
		if tt.consumed > 0 {
			consume(t, s, tt.consumed)
		}
		if got := s.TokenWarning(); got != tt.want {
			t.Errorf("consumed %d: warning = %s, want %s", tt.consumed, got, tt.want)
		}
	}
}

func TestWorse(t *testing.T) {
	if got := LevelNormal.Worse(LevelCritical); got != LevelCritical {
		t.Errorf("got %s", got)
	}
	if got := LevelUrgent.Worse(LevelWarning); got != LevelUrgent {
		t.Errorf("got %s", got)
	}
	if got := LevelExpired.Worse(LevelExpired); got != LevelExpired {
		t.Errorf("got %s", got)
	}
}

func TestSnapshotAggregatesWarnings(t *testing.T) {
	s := startedSession(t, 100*time.Minute, 1000)
	if err := s.Reserve("r", 950, t0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := s.Reconcile("r", 500, 450); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	snap := s.Snapshot(t0.Add(10 * time.Minute))
	if snap.TimeWarning != LevelNormal {
		t.Errorf("timeWarning = %s", snap.TimeWarning)
	}
	if snap.TokenWarning != LevelUrgent {
		t.Errorf("tokenWarning = %s", snap.TokenWarning)
	}
	if snap.Warning != LevelUrgent {
		t.Errorf("overall = %s, want urgent", snap.Warning)
	}
	if snap.TimeDisplay != "01:30:00" {
		t.Errorf("timeDisplay = %q", snap.TimeDisplay)
	}
	if snap.RemainingTokens != 50 {
		t.Errorf("remainingTokens = %d", snap.RemainingTokens)
	}
}
