package session

import (
	"time"

	domses "github.com/proctorly/sessiond/internal/domain/session"
)

// sessionDTO is the persisted JSON form of a session ledger. Durations are
// stored as milliseconds.
type sessionDTO struct {
	ID                  string           `json:"id"`
	Status              string           `json:"status"`
	TimeLimitMS         int64            `json:"time_limit_ms"`
	StartedAt           time.Time        `json:"started_at"`
	PausedAt            time.Time        `json:"paused_at"`
	EndedAt             time.Time        `json:"ended_at"`
	AccumulatedPausedMS int64            `json:"accumulated_paused_ms"`
	TokenBudget         int              `json:"token_budget"`
	TokensConsumed      int              `json:"tokens_consumed"`
	InputTokens         int              `json:"input_tokens"`
	OutputTokens        int              `json:"output_tokens"`
	Reservations        []reservationDTO `json:"reservations,omitempty"`
	ExchangeCount       int              `json:"exchange_count"`
	ExchangeHistory     []int            `json:"exchange_history,omitempty"`
	LastWarning         string           `json:"last_warning"`
	ExpiryReason        string           `json:"expiry_reason,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

type reservationDTO struct {
	ID        string    `json:"id"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

func toDTO(st domses.State) sessionDTO {
	reservations := make([]reservationDTO, len(st.Reservations))
	for i, r := range st.Reservations {
		reservations[i] = reservationDTO{ID: r.ID, Tokens: r.Tokens, CreatedAt: r.CreatedAt}
	}
	return sessionDTO{
		ID:                  st.ID,
		Status:              string(st.Status),
		TimeLimitMS:         st.TimeLimit.Milliseconds(),
		StartedAt:           st.StartedAt,
		PausedAt:            st.PausedAt,
		EndedAt:             st.EndedAt,
		AccumulatedPausedMS: st.AccumulatedPaused.Milliseconds(),
		TokenBudget:         st.TokenBudget,
		TokensConsumed:      st.TokensConsumed,
		InputTokens:         st.InputTokens,
		OutputTokens:        st.OutputTokens,
		Reservations:        reservations,
		ExchangeCount:       st.ExchangeCount,
		ExchangeHistory:     st.ExchangeHistory,
		LastWarning:         string(st.LastWarning),
		ExpiryReason:        string(st.ExpiryReason),
		CreatedAt:           st.CreatedAt,
	}
}

func fromDTO(d sessionDTO) domses.State {
	reservations := make([]domses.ReservationState, len(d.Reservations))
	for i, r := range d.Reservations {
		reservations[i] = domses.ReservationState{ID: r.ID, Tokens: r.Tokens, CreatedAt: r.CreatedAt}
	}
	return domses.State{
		ID:                d.ID,
		Status:            domses.Status(d.Status),
		TimeLimit:         time.Duration(d.TimeLimitMS) * time.Millisecond,
		StartedAt:         d.StartedAt,
		PausedAt:          d.PausedAt,
		EndedAt:           d.EndedAt,
		AccumulatedPaused: time.Duration(d.AccumulatedPausedMS) * time.Millisecond,
		TokenBudget:       d.TokenBudget,
		TokensConsumed:    d.TokensConsumed,
		InputTokens:       d.InputTokens,
		OutputTokens:      d.OutputTokens,
		Reservations:      reservations,
		ExchangeCount:     d.ExchangeCount,
		ExchangeHistory:   d.ExchangeHistory,
		LastWarning:       domses.Level(d.LastWarning),
		ExpiryReason:      domses.Reason(d.ExpiryReason),
		CreatedAt:         d.CreatedAt,
	}
}
