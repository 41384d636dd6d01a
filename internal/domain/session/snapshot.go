package session

import "time"

// Snapshot is a read-only view of the ledger at a point in time. The overall
// warning level is the worse of the time and token tiers.
type Snapshot struct {
	ID     string
	Status Status

	TimeLimit     time.Duration
	ElapsedActive time.Duration
	RemainingTime time.Duration
	TimeDisplay   string
	TimeWarning   Level

	TokenBudget     int
	TokensConsumed  int
	TokensReserved  int
	InputTokens     int
	OutputTokens    int
	RemainingTokens int
	TokenWarning    Level

	Warning        Level
	WarningChanged bool

	ExchangeCount        int
	AvgTokensPerExchange float64
	// ExchangesRemaining is -1 until at least one exchange has settled.
	ExchangesRemaining int

	ExpiryReason Reason
	CreatedAt    time.Time
	StartedAt    time.Time
	PausedAt     time.Time
	EndedAt      time.Time
}

// Snapshot captures the current ledger view. It does not mutate the session;
// callers wanting auto-expiry applied run Evaluate first.
func (s *Session) Snapshot(now time.Time) Snapshot {
	remaining := s.RemainingTime(now)
	timeWarning := s.TimeWarning(now)
	tokenWarning := s.TokenWarning()

	exchangesRemaining := -1
	if n, ok := s.EstimateExchangesRemaining(); ok {
		exchangesRemaining = n
	}

	return Snapshot{
		ID:     s.id,
		Status: s.state,

		TimeLimit:     s.timeLimit,
		ElapsedActive: s.ElapsedActive(now),
		RemainingTime: remaining,
		TimeDisplay:   FormatDuration(remaining),
		TimeWarning:   timeWarning,

		TokenBudget:     s.tokenBudget,
		TokensConsumed:  s.tokensConsumed,
		TokensReserved:  s.TokensReserved(),
		InputTokens:     s.inputTokens,
		OutputTokens:    s.outputTokens,
		RemainingTokens: s.RemainingTokens(),
		TokenWarning:    tokenWarning,

		Warning: timeWarning.Worse(tokenWarning),

		ExchangeCount:        s.exchangeCount,
		AvgTokensPerExchange: s.AvgTokensPerExchange(),
		ExchangesRemaining:   exchangesRemaining,

		ExpiryReason: s.expiryReason,
		CreatedAt:    s.createdAt,
		StartedAt:    s.startedAt,
		PausedAt:     s.pausedAt,
		EndedAt:      s.endedAt,
	}
}
