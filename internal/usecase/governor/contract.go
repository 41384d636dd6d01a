package governor

import (
	"context"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
)

// Repository defines the storage contract for session ledgers.
type Repository interface {
	// Create persists a new session; fails with domain.ErrSessionExists on collision.
	Create(ctx context.Context, s *session.Session) error
	Load(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
	List(ctx context.Context) ([]*session.Session, error)
}

// EventLog is the append-only audit trail for session activity.
type EventLog interface {
	Append(ctx context.Context, ev domain.Event) error
	List(ctx context.Context, sessionID string) ([]domain.Event, error)
}
