package chi

import (
	"time"

	domses "github.com/proctorly/sessiond/internal/domain/session"
)

// ErrorCode classifies API error responses.
type ErrorCode string

const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeSessionNotFound     ErrorCode = "session_not_found"
	CodeSessionExists       ErrorCode = "session_already_exists"
	CodeInvalidState        ErrorCode = "invalid_state_transition"
	CodeSessionTerminal     ErrorCode = "session_already_terminal"
	CodeBudgetInsufficient  ErrorCode = "token_budget_insufficient"
	CodeReservationNotFound ErrorCode = "reservation_not_found"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeModelProviderError  ErrorCode = "model_provider_error"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	ID           string `json:"id,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
	TokenBudget  int    `json:"token_budget,omitempty"`
}

// ExtendTimeRequest is the body of POST /sessions/{id}/extend-time.
type ExtendTimeRequest struct {
	ExtraSec int `json:"extra_sec"`
}

// ExtendTokensRequest is the body of POST /sessions/{id}/extend-tokens.
type ExtendTokensRequest struct {
	ExtraTokens int `json:"extra_tokens"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// SessionResponse is the ledger view returned by session endpoints.
type SessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	TimeLimitSec int    `json:"time_limit_sec"`
	ElapsedSec   int    `json:"elapsed_sec"`
	RemainingSec int    `json:"remaining_sec"`
	TimeDisplay  string `json:"time_display"`
	TimeWarning  string `json:"time_warning"`

	TokenBudget     int    `json:"token_budget"`
	TokensConsumed  int    `json:"tokens_consumed"`
	TokensReserved  int    `json:"tokens_reserved"`
	InputTokens     int    `json:"input_tokens"`
	OutputTokens    int    `json:"output_tokens"`
	RemainingTokens int    `json:"remaining_tokens"`
	TokenWarning    string `json:"token_warning"`

	Warning        string `json:"warning"`
	WarningChanged bool   `json:"warning_changed"`

	ExchangeCount        int      `json:"exchange_count"`
	AvgTokensPerExchange float64  `json:"avg_tokens_per_exchange"`
	ExchangesRemaining   *int     `json:"exchanges_remaining,omitempty"`
	ExpiryReason         string   `json:"expiry_reason,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SessionListResponse is the body of GET /sessions.
type SessionListResponse struct {
	Items []SessionResponse `json:"items"`
}

// EventResponse is one audit trail entry.
type EventResponse struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EventListResponse is the body of GET /sessions/{id}/events.
type EventListResponse struct {
	Items []EventResponse `json:"items"`
}

// TurnResponse is one transcript entry.
type TurnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptResponse is the body of GET /sessions/{id}/transcript.
type TranscriptResponse struct {
	Items []TurnResponse `json:"items"`
}

// MessageResponse is the body of POST /sessions/{id}/messages.
type MessageResponse struct {
	Reply   string          `json:"reply"`
	Session SessionResponse `json:"session"`
}

func sessionToResponse(snap domses.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:     snap.ID,
		Status: string(snap.Status),

		TimeLimitSec: int(snap.TimeLimit.Seconds()),
		ElapsedSec:   int(snap.ElapsedActive.Seconds()),
		RemainingSec: int(snap.RemainingTime.Seconds()),
		TimeDisplay:  snap.TimeDisplay,
		TimeWarning:  string(snap.TimeWarning),

		TokenBudget:     snap.TokenBudget,
		TokensConsumed:  snap.TokensConsumed,
		TokensReserved:  snap.TokensReserved,
		InputTokens:     snap.InputTokens,
		OutputTokens:    snap.OutputTokens,
		RemainingTokens: snap.RemainingTokens,
		TokenWarning:    string(snap.TokenWarning),

		Warning:        string(snap.Warning),
		WarningChanged: snap.WarningChanged,

		ExchangeCount:        snap.ExchangeCount,
		AvgTokensPerExchange: snap.AvgTokensPerExchange,
		ExpiryReason:         string(snap.ExpiryReason),
		CreatedAt:            snap.CreatedAt,
	}
	if snap.ExchangesRemaining >= 0 {
		n := snap.ExchangesRemaining
		resp.ExchangesRemaining = &n
	}
	if !snap.StartedAt.IsZero() {
		t := snap.StartedAt
		resp.StartedAt = &t
	}
	if !snap.EndedAt.IsZero() {
		t := snap.EndedAt
		resp.EndedAt = &t
	}
	return resp
}
