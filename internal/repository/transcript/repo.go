// Package transcript persists per-session conversation history as an
// append-only list.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "transcript:"

// store is the consumer interface for transcripts (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements the chat service's transcript store.
type Repo struct {
	store     store
	retention time.Duration
}

// New creates a transcript repository.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// turnDTO is the persisted JSON form of a conversation turn.
type turnDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Append adds turns to the session's transcript in order.
func (r *Repo) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := transcriptKey(sessionID)
	values := make([][]byte, len(turns))
	for i, turn := range turns {
		data, err := json.Marshal(turnDTO{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values[i] = data
	}
	if err := r.store.RPush(ctx, key, values...); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	if r.retention > 0 {
		if err := r.store.Expire(ctx, key, r.retention, true); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// List returns a session's transcript, oldest first.
func (r *Repo) List(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	key := transcriptKey(sessionID)
	rows, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	out := make([]domain.Turn, 0, len(rows))
	for _, row := range rows {
		var dto turnDTO
		if err := json.Unmarshal(row, &dto); err != nil {
			return nil, fmt.Errorf("unmarshal turn for %s: %w", sessionID, err)
		}
		out = append(out, domain.Turn{
			Role:      domain.Role(dto.Role),
			Content:   dto.Content,
			CreatedAt: dto.CreatedAt,
		})
	}
	return out, nil
}

func transcriptKey(sessionID string) string {
	return keyPrefix + sessionID
}
