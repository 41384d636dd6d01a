// Package session persists session ledgers as JSON values keyed by id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/proctorly/sessiond/internal/db"
	"github.com/proctorly/sessiond/internal/domain"
	domses "github.com/proctorly/sessiond/internal/domain/session"
)

const keyPrefix = domain.KeyPrefix + "session:"

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the governor's session repository.
type Repo struct {
	store     store
	retention time.Duration
}

// New creates a session repository. retention bounds how long terminal
// sessions are kept; zero keeps them forever.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// Create persists a new session, refusing id collisions.
func (r *Repo) Create(ctx context.Context, s *domses.Session) error {
	key := sessionKey(s.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return domain.ErrSessionExists
	}
	return r.write(ctx, s)
}

// Load returns a session by id.
func (r *Repo) Load(ctx context.Context, id string) (*domses.Session, error) {
	key := sessionKey(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var dto sessionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return domses.Reconstruct(fromDTO(dto)), nil
}

// Save persists the current ledger state. Terminal sessions pick up the
// retention TTL so closed ledgers age out on their own.
func (r *Repo) Save(ctx context.Context, s *domses.Session) error {
	return r.write(ctx, s)
}

func (r *Repo) write(ctx context.Context, s *domses.Session) error {
	key := sessionKey(s.ID())
	data, err := json.Marshal(toDTO(s.Dump()))
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.ID(), err)
	}
	if r.retention > 0 && s.Status().Terminal() {
		if err := r.store.SetWithTTL(ctx, key, data, r.retention); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// List returns all stored sessions.
func (r *Repo) List(ctx context.Context) ([]*domses.Session, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	out := make([]*domses.Session, 0, len(keys))
	for _, key := range keys {
		s, err := r.Load(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			// A key can expire between scan and load.
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func sessionKey(id string) string {
	return keyPrefix + id
}
