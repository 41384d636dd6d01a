package chat

import (
	"context"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
)

// Completer produces model completions for a conversation.
type Completer interface {
	Complete(ctx context.Context, turns []domain.Turn) (domain.Reply, error)
}

// Governor brackets an exchange against the session budgets.
type Governor interface {
	BeginExchange(ctx context.Context, id string, estimate int) (reservationID string, snap session.Snapshot, err error)
	FinishExchange(ctx context.Context, id, reservationID string, inputTokens, outputTokens int) (session.Snapshot, error)
	AbortExchange(ctx context.Context, id, reservationID string) error
}

// Transcript stores the per-session conversation history.
type Transcript interface {
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	List(ctx context.Context, sessionID string) ([]domain.Turn, error)
}
