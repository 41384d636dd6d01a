package session

import (
	"fmt"
	"time"
)

// ElapsedActive returns active time: wall time between start and the end
// point, minus every pause interval. The end point is the terminal timestamp
// for an ended session, otherwise now. An open pause interval is excluded up
// to now. Never negative; zero before the first start.
func (s *Session) ElapsedActive(now time.Time) time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	end := now
	if !s.endedAt.IsZero() {
		end = s.endedAt
	}
	elapsed := end.Sub(s.startedAt) - s.accumulatedPaused
	if s.state == StatusPaused && !s.pausedAt.IsZero() {
		elapsed -= now.Sub(s.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// RemainingTime returns the unspent wall-clock budget, floored at zero.
func (s *Session) RemainingTime(now time.Time) time.Duration {
	remaining := s.timeLimit - s.ElapsedActive(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeWarning returns the warning tier for the remaining time fraction.
func (s *Session) TimeWarning(now time.Time) Level {
	if s.state == StatusExpired {
		return LevelExpired
	}
	return levelForFraction(float64(s.RemainingTime(now)) / float64(s.timeLimit))
}

// FormatDuration renders a duration as zero-padded HH:MM:SS, with whole
// seconds floored. Negative durations render as 00:00:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// FormatClock renders a duration the way a countdown display shows it:
// MM:SS under an hour, HH:MM:SS otherwise.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h == 0 {
		return fmt.Sprintf("%02d:%02d", m, sec)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
