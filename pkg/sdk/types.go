package sessiond

import (
	"time"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
)

// Status is the lifecycle state of a session.
type Status string

// Session status constants.
const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// WarningLevel grades how close a session is to exhausting a budget.
type WarningLevel string

// Warning level constants, mildest first.
const (
	WarningNormal   WarningLevel = "normal"
	WarningWarning  WarningLevel = "warning"
	WarningCritical WarningLevel = "critical"
	WarningUrgent   WarningLevel = "urgent"
	WarningExpired  WarningLevel = "expired"
)

// SessionParams are the knobs for a new session. Zero values fall back to the
// client defaults; an empty ID gets a generated UUID.
type SessionParams struct {
	ID          string
	TimeLimit   time.Duration
	TokenBudget int
}

// Session is a point-in-time view of a session ledger.
type Session struct {
	ID     string
	Status Status

	TimeLimit     time.Duration
	ElapsedActive time.Duration
	RemainingTime time.Duration
	TimeDisplay   string
	TimeWarning   WarningLevel

	TokenBudget     int
	TokensConsumed  int
	TokensReserved  int
	InputTokens     int
	OutputTokens    int
	RemainingTokens int
	TokenWarning    WarningLevel

	// Warning is the worse of the time and token tiers. WarningChanged is set
	// the first time the tier is observed after it moved.
	Warning        WarningLevel
	WarningChanged bool

	ExchangeCount        int
	AvgTokensPerExchange float64
	// ExchangesRemaining is -1 until at least one exchange has settled.
	ExchangesRemaining int

	// ExpiryReason is "time" or "tokens" for expired sessions, empty otherwise.
	ExpiryReason string

	CreatedAt time.Time
	StartedAt time.Time
	PausedAt  time.Time
	EndedAt   time.Time
}

// Turn is one message in a session transcript.
type Turn struct {
	Role      string // "system", "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Reply is a model completion with its provider-reported usage.
type Reply struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// SendResult is the outcome of one exchange.
type SendResult struct {
	Reply   string
	Session Session
}

// Event is one entry in a session audit trail.
type Event struct {
	SessionID   string
	Type        string
	Description string
	Data        map[string]any
	CreatedAt   time.Time
}

func sessionFromSnapshot(s session.Snapshot) Session {
	return Session{
		ID:     s.ID,
		Status: Status(s.Status),

		TimeLimit:     s.TimeLimit,
		ElapsedActive: s.ElapsedActive,
		RemainingTime: s.RemainingTime,
		TimeDisplay:   s.TimeDisplay,
		TimeWarning:   WarningLevel(s.TimeWarning),

		TokenBudget:     s.TokenBudget,
		TokensConsumed:  s.TokensConsumed,
		TokensReserved:  s.TokensReserved,
		InputTokens:     s.InputTokens,
		OutputTokens:    s.OutputTokens,
		RemainingTokens: s.RemainingTokens,
		TokenWarning:    WarningLevel(s.TokenWarning),

		Warning:        WarningLevel(s.Warning),
		WarningChanged: s.WarningChanged,

		ExchangeCount:        s.ExchangeCount,
		AvgTokensPerExchange: s.AvgTokensPerExchange,
		ExchangesRemaining:   s.ExchangesRemaining,

		ExpiryReason: string(s.ExpiryReason),
		CreatedAt:    s.CreatedAt,
		StartedAt:    s.StartedAt,
		PausedAt:     s.PausedAt,
		EndedAt:      s.EndedAt,
	}
}

func turnFromDomain(t domain.Turn) Turn {
	return Turn{Role: string(t.Role), Content: t.Content, CreatedAt: t.CreatedAt}
}

func eventFromDomain(e domain.Event) Event {
	return Event{
		SessionID:   e.SessionID,
		Type:        string(e.Type),
		Description: e.Description,
		Data:        e.Data,
		CreatedAt:   e.CreatedAt,
	}
}
