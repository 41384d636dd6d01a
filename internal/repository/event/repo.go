// Package event persists the per-session audit trail as an append-only list.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "events:"

// store is the consumer interface for the audit log (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements the governor's event log.
type Repo struct {
	store     store
	retention time.Duration
}

// New creates an event repository. retention bounds how long a session's
// trail is kept after its first event; zero keeps trails forever.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// eventDTO is the persisted JSON form of an audit event.
type eventDTO struct {
	SessionID   string         `json:"session_id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Append adds one event to the session's trail.
func (r *Repo) Append(ctx context.Context, ev domain.Event) error {
	key := eventKey(ev.SessionID)
	data, err := json.Marshal(eventDTO{
		SessionID:   ev.SessionID,
		Type:        string(ev.Type),
		Description: ev.Description,
		Data:        ev.Data,
		CreatedAt:   ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.store.RPush(ctx, key, data); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	if r.retention > 0 {
		// NX keeps the TTL anchored at the first event.
		if err := r.store.Expire(ctx, key, r.retention, true); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// List returns a session's trail, oldest first. Missing trails are empty.
func (r *Repo) List(ctx context.Context, sessionID string) ([]domain.Event, error) {
	key := eventKey(sessionID)
	rows, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		var dto eventDTO
		if err := json.Unmarshal(row, &dto); err != nil {
			return nil, fmt.Errorf("unmarshal event for %s: %w", sessionID, err)
		}
		out = append(out, domain.Event{
			SessionID:   dto.SessionID,
			Type:        domain.EventType(dto.Type),
			Description: dto.Description,
			Data:        dto.Data,
			CreatedAt:   dto.CreatedAt,
		})
	}
	return out, nil
}

func eventKey(sessionID string) string {
	return keyPrefix + sessionID
}
