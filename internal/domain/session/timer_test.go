package session

import (
	"testing"
	"time"
)

func TestElapsedActivePauseAccounting(t *testing.T) {
	// Start at t0, pause at +10m, resume at +40m: at +70m the session has
	// been active for 40m (70m wall minus 30m paused).
	s := startedSession(t, 2*time.Hour, 1000)
	if err := s.Pause(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Resume(t0.Add(40 * time.Minute)); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := s.ElapsedActive(t0.Add(70 * time.Minute)); got != 40*time.Minute {
		t.Errorf("elapsed = %v, want 40m", got)
	}
}

func TestElapsedActiveFrozenWhilePaused(t *testing.T) {
	s := startedSession(t, 2*time.Hour, 1000)
	if err := s.Pause(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	for _, at := range []time.Duration{11 * time.Minute, 30 * time.Minute, 3 * time.Hour} {
		if got := s.ElapsedActive(t0.Add(at)); got != 10*time.Minute {
			t.Errorf("elapsed at +%v = %v, want 10m", at, got)
		}
	}
}

func TestElapsedActiveBeforeStart(t *testing.T) {
	s := newTestSession(t, time.Hour, 1000)
	if got := s.ElapsedActive(t0.Add(time.Hour)); got != 0 {
		t.Errorf("elapsed = %v, want 0", got)
	}
}

func TestElapsedActiveFrozenAfterEnd(t *testing.T) {
	s := startedSession(t, time.Hour, 1000)
	if err := s.Complete(t0.Add(25 * time.Minute)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := s.ElapsedActive(t0.Add(5 * time.Hour)); got != 25*time.Minute {
		t.Errorf("elapsed = %v, want 25m", got)
	}
}

func TestRemainingTimeFloorsAtZero(t *testing.T) {
	s := startedSession(t, 10*time.Minute, 1000)
	if got := s.RemainingTime(t0.Add(4 * time.Minute)); got != 6*time.Minute {
		t.Errorf("remaining = %v, want 6m", got)
	}
	if got := s.RemainingTime(t0.Add(time.Hour)); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
}

func TestMultiplePauseCycles(t *testing.T) {
	s := startedSession(t, time.Hour, 1000)
	intervals := []struct{ pauseAt, resumeAt time.Duration }{
		{5 * time.Minute, 7 * time.Minute},
		{12 * time.Minute, 20 * time.Minute},
		{25 * time.Minute, 26 * time.Minute},
	}
	for _, iv := range intervals {
		if err := s.Pause(t0.Add(iv.pauseAt)); err != nil {
			t.Fatalf("Pause at +%v: %v", iv.pauseAt, err)
		}
		if err := s.Resume(t0.Add(iv.resumeAt)); err != nil {
			t.Fatalf("Resume at +%v: %v", iv.resumeAt, err)
		}
	}
	// 30m wall minus 11m total paused.
	if got := s.ElapsedActive(t0.Add(30 * time.Minute)); got != 19*time.Minute {
		t.Errorf("elapsed = %v, want 19m", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{59*time.Minute + 59*time.Second, "00:59:59"},
		{time.Hour, "01:00:00"},
		{25*time.Hour + 4*time.Minute + 5*time.Second, "25:04:05"},
		{1500 * time.Millisecond, "00:00:01"},
		{-time.Minute, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{9*time.Minute + 30*time.Second, "09:30"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour, "01:00:00"},
		{2*time.Hour + 15*time.Minute, "02:15:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.d); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
