// Package session implements the per-session budget ledger: a lifecycle state
// machine combined with pause-aware time accounting and two-phase token
// accounting. All mutation goes through the governor, which serializes access
// per session; the aggregate itself performs no locking.
package session

import (
	"fmt"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusCreated is the initial state before the first start.
	StatusCreated Status = "created"
	// StatusActive means the timer is running and exchanges are allowed.
	StatusActive Status = "active"
	// StatusPaused means the timer is stopped; resume returns to active.
	StatusPaused Status = "paused"
	// StatusCompleted is the terminal state reached by an explicit complete.
	StatusCompleted Status = "completed"
	// StatusExpired is the terminal state reached automatically on exhaustion.
	StatusExpired Status = "expired"
)

// Terminal reports whether the state is absorbing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Live reports whether the session still counts against its budgets.
func (s Status) Live() bool {
	return s == StatusActive || s == StatusPaused
}

// Reason tags why a session expired.
type Reason string

const (
	// ReasonTime means the wall-clock budget ran out.
	ReasonTime Reason = "time"
	// ReasonTokens means the token budget ran out.
	ReasonTokens Reason = "tokens"
)

// Reservation is a provisional hold against the token budget, taken before the
// true cost of an exchange is known.
type Reservation struct {
	id        string
	tokens    int
	createdAt time.Time
}

// ID returns the reservation handle.
func (r Reservation) ID() string { return r.id }

// Tokens returns the held estimate.
func (r Reservation) Tokens() int { return r.tokens }

// CreatedAt returns when the hold was taken.
func (r Reservation) CreatedAt() time.Time { return r.createdAt }

// Session is the authoritative per-session ledger.
type Session struct {
	id    string
	state Status

	timeLimit         time.Duration
	startedAt         time.Time // zero before first start
	pausedAt          time.Time // zero unless currently paused
	endedAt           time.Time // zero while live
	accumulatedPaused time.Duration

	tokenBudget    int
	tokensConsumed int
	inputTokens    int
	outputTokens   int
	reservations   []Reservation

	exchangeCount   int
	exchangeHistory []int

	lastWarning  Level
	expiryReason Reason
	createdAt    time.Time
}

// New validates and creates a Session in the created state with full budgets.
func New(id string, timeLimit time.Duration, tokenBudget int, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required: %w", domain.ErrValidation)
	}
	if timeLimit <= 0 {
		return nil, fmt.Errorf("time limit must be positive: %w", domain.ErrValidation)
	}
	if tokenBudget <= 0 {
		return nil, fmt.Errorf("token budget must be positive: %w", domain.ErrValidation)
	}

	return &Session{
		id:          id,
		state:       StatusCreated,
		timeLimit:   timeLimit,
		tokenBudget: tokenBudget,
		lastWarning: LevelNormal,
		createdAt:   now,
	}, nil
}

// State carries every persisted ledger field for storage hydration.
type State struct {
	ID                string
	Status            Status
	TimeLimit         time.Duration
	StartedAt         time.Time
	PausedAt          time.Time
	EndedAt           time.Time
	AccumulatedPaused time.Duration
	TokenBudget       int
	TokensConsumed    int
	InputTokens       int
	OutputTokens      int
	Reservations      []ReservationState
	ExchangeCount     int
	ExchangeHistory   []int
	LastWarning       Level
	ExpiryReason      Reason
	CreatedAt         time.Time
}

// ReservationState is the persisted form of an outstanding reservation.
type ReservationState struct {
	ID        string
	Tokens    int
	CreatedAt time.Time
}

// Reconstruct creates a Session without validation (storage hydration).
func Reconstruct(st State) *Session {
	reservations := make([]Reservation, len(st.Reservations))
	for i, r := range st.Reservations {
		reservations[i] = Reservation{id: r.ID, tokens: r.Tokens, createdAt: r.CreatedAt}
	}
	return &Session{
		id:                st.ID,
		state:             st.Status,
		timeLimit:         st.TimeLimit,
		startedAt:         st.StartedAt,
		pausedAt:          st.PausedAt,
		endedAt:           st.EndedAt,
		accumulatedPaused: st.AccumulatedPaused,
		tokenBudget:       st.TokenBudget,
		tokensConsumed:    st.TokensConsumed,
		inputTokens:       st.InputTokens,
		outputTokens:      st.OutputTokens,
		reservations:      reservations,
		exchangeCount:     st.ExchangeCount,
		exchangeHistory:   st.ExchangeHistory,
		lastWarning:       st.LastWarning,
		expiryReason:      st.ExpiryReason,
		createdAt:         st.CreatedAt,
	}
}

// Dump exports every persisted field (inverse of Reconstruct).
func (s *Session) Dump() State {
	reservations := make([]ReservationState, len(s.reservations))
	for i, r := range s.reservations {
		reservations[i] = ReservationState{ID: r.id, Tokens: r.tokens, CreatedAt: r.createdAt}
	}
	return State{
		ID:                s.id,
		Status:            s.state,
		TimeLimit:         s.timeLimit,
		StartedAt:         s.startedAt,
		PausedAt:          s.pausedAt,
		EndedAt:           s.endedAt,
		AccumulatedPaused: s.accumulatedPaused,
		TokenBudget:       s.tokenBudget,
		TokensConsumed:    s.tokensConsumed,
		InputTokens:       s.inputTokens,
		OutputTokens:      s.outputTokens,
		Reservations:      reservations,
		ExchangeCount:     s.exchangeCount,
		ExchangeHistory:   s.exchangeHistory,
		LastWarning:       s.lastWarning,
		ExpiryReason:      s.expiryReason,
		CreatedAt:         s.createdAt,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.state }

// TimeLimit returns the wall-clock budget.
func (s *Session) TimeLimit() time.Duration { return s.timeLimit }

// StartedAt returns the first-start timestamp (zero before start).
func (s *Session) StartedAt() time.Time { return s.startedAt }

// PausedAt returns the current pause timestamp (zero unless paused).
func (s *Session) PausedAt() time.Time { return s.pausedAt }

// EndedAt returns the terminal timestamp (zero while live).
func (s *Session) EndedAt() time.Time { return s.endedAt }

// AccumulatedPaused returns the sum of all closed pause intervals.
func (s *Session) AccumulatedPaused() time.Duration { return s.accumulatedPaused }

// ExpiryReason returns why the session expired (empty unless expired).
func (s *Session) ExpiryReason() Reason { return s.expiryReason }

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastWarning returns the last warning tier recorded for notification dedup.
func (s *Session) LastWarning() Level { return s.lastWarning }

// SetLastWarning records the last emitted warning tier.
func (s *Session) SetLastWarning(l Level) { s.lastWarning = l }

// Start transitions created → active and stamps the start time.
func (s *Session) Start(now time.Time) error {
	if s.state != StatusCreated {
		return domain.NewTransitionError("start", string(s.state))
	}
	s.startedAt = now
	s.state = StatusActive
	return nil
}

// Pause transitions active → paused and stamps the pause time.
func (s *Session) Pause(now time.Time) error {
	if s.state != StatusActive {
		return domain.NewTransitionError("pause", string(s.state))
	}
	s.pausedAt = now
	s.state = StatusPaused
	return nil
}

// Resume transitions paused → active, folding the closed pause interval into
// the accumulated total.
func (s *Session) Resume(now time.Time) error {
	if s.state != StatusPaused {
		return domain.NewTransitionError("resume", string(s.state))
	}
	s.accumulatedPaused += now.Sub(s.pausedAt)
	s.pausedAt = time.Time{}
	s.state = StatusActive
	return nil
}

// Complete transitions active|paused → completed. Idempotent on an already
// completed session; an expired session cannot cross into completed.
func (s *Session) Complete(now time.Time) error {
	switch s.state {
	case StatusCompleted:
		return nil
	case StatusExpired:
		return fmt.Errorf("complete: %w", domain.ErrSessionAlreadyTerminal)
	case StatusActive, StatusPaused:
		s.end(StatusCompleted, now)
		return nil
	default:
		return domain.NewTransitionError("complete", string(s.state))
	}
}

// ExtendTime raises the wall-clock ceiling of a live session. Extensions never
// revive a terminal session.
func (s *Session) ExtendTime(extra time.Duration) error {
	if extra <= 0 {
		return fmt.Errorf("time extension must be positive: %w", domain.ErrValidation)
	}
	if s.state.Terminal() {
		return fmt.Errorf("extend time: %w", domain.ErrSessionAlreadyTerminal)
	}
	s.timeLimit += extra
	return nil
}

// ExtendTokens raises the token ceiling of a live session.
func (s *Session) ExtendTokens(extra int) error {
	if extra <= 0 {
		return fmt.Errorf("token extension must be positive: %w", domain.ErrValidation)
	}
	if s.state.Terminal() {
		return fmt.Errorf("extend tokens: %w", domain.ErrSessionAlreadyTerminal)
	}
	s.tokenBudget += extra
	return nil
}

// Evaluate applies pending automatic expiry. It is the only automatic
// transition: a live session whose active time or consumed tokens reached the
// budget moves to expired. Outstanding reservations are dropped on expiry.
// Returns the expiry reason when a transition happened.
func (s *Session) Evaluate(now time.Time) (Reason, bool) {
	if !s.state.Live() {
		return "", false
	}
	switch {
	case s.tokensConsumed >= s.tokenBudget:
		s.expire(ReasonTokens, now)
		return ReasonTokens, true
	case !s.startedAt.IsZero() && s.ElapsedActive(now) >= s.timeLimit:
		s.expire(ReasonTime, now)
		return ReasonTime, true
	default:
		return "", false
	}
}

func (s *Session) expire(reason Reason, now time.Time) {
	s.expiryReason = reason
	s.end(StatusExpired, now)
}

// end freezes the ledger: folds an open pause, drops outstanding
// reservations, and stamps the terminal state.
func (s *Session) end(terminal Status, now time.Time) {
	if !s.pausedAt.IsZero() {
		s.accumulatedPaused += now.Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	}
	s.reservations = nil
	s.endedAt = now
	s.state = terminal
}
