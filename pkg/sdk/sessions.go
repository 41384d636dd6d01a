package sessiond

import (
	"context"
	"fmt"
	"time"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
	governoruc "github.com/proctorly/sessiond/internal/usecase/governor"
)

// CreateSession registers a new session in the created state. The clock does
// not run until StartSession.
func (c *Client) CreateSession(ctx context.Context, p SessionParams) (Session, error) {
	snap, err := c.governor.Create(ctx, governoruc.CreateParams{
		ID:          p.ID,
		TimeLimit:   p.TimeLimit,
		TokenBudget: p.TokenBudget,
	})
	if err != nil {
		return Session{}, err
	}
	return sessionFromSnapshot(snap), nil
}

// StartSession begins the session clock.
func (c *Client) StartSession(ctx context.Context, id string) (Session, error) {
	return c.lifecycle(ctx, id, c.governor.Start)
}

// PauseSession stops the clock without ending the session. Paused time does
// not count against the time limit.
func (c *Client) PauseSession(ctx context.Context, id string) (Session, error) {
	return c.lifecycle(ctx, id, c.governor.Pause)
}

// ResumeSession restarts the clock of a paused session.
func (c *Client) ResumeSession(ctx context.Context, id string) (Session, error) {
	return c.lifecycle(ctx, id, c.governor.Resume)
}

// CompleteSession ends the session normally. Idempotent when already completed.
func (c *Client) CompleteSession(ctx context.Context, id string) (Session, error) {
	return c.lifecycle(ctx, id, c.governor.Complete)
}

// ExtendTime grants extra wall-clock budget to a live session. extra must be
// positive; an expired session cannot be revived.
func (c *Client) ExtendTime(ctx context.Context, id string, extra time.Duration) (Session, error) {
	snap, err := c.governor.ExtendTime(ctx, id, extra)
	if err != nil {
		return Session{}, err
	}
	return sessionFromSnapshot(snap), nil
}

// ExtendTokens grants extra token budget to a live session.
func (c *Client) ExtendTokens(ctx context.Context, id string, extra int) (Session, error) {
	snap, err := c.governor.ExtendTokens(ctx, id, extra)
	if err != nil {
		return Session{}, err
	}
	return sessionFromSnapshot(snap), nil
}

// GetSession returns the current ledger view. Pending expiry is applied
// before the view is taken.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	return c.lifecycle(ctx, id, c.governor.Snapshot)
}

// ListSessions returns all sessions, optionally filtered by status. An empty
// status returns everything.
func (c *Client) ListSessions(ctx context.Context, status Status) ([]Session, error) {
	switch status {
	case "", StatusCreated, StatusActive, StatusPaused, StatusCompleted, StatusExpired:
	default:
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrValidation)
	}
	snaps, err := c.governor.List(ctx, session.Status(status))
	if err != nil {
		return nil, err
	}
	out := make([]Session, len(snaps))
	for i, s := range snaps {
		out[i] = sessionFromSnapshot(s)
	}
	return out, nil
}

// Events returns the audit trail of a session, oldest first.
func (c *Client) Events(ctx context.Context, id string) ([]Event, error) {
	evs, err := c.governor.Events(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]Event, len(evs))
	for i, e := range evs {
		out[i] = eventFromDomain(e)
	}
	return out, nil
}

func (c *Client) lifecycle(ctx context.Context, id string, op func(context.Context, string) (session.Snapshot, error)) (Session, error) {
	snap, err := op(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return sessionFromSnapshot(snap), nil
}
