// Package chat runs budget-governed conversation exchanges: every model call
// is bracketed by a token reservation before and a usage reconciliation
// after, so a session can never silently run past its budget.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/clock"
	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/session"
	"github.com/proctorly/sessiond/internal/domain/tokens"
)

// Service handles conversation exchanges within a session.
type Service struct {
	governor     Governor
	completer    Completer
	transcript   Transcript
	clk          clock.Clock
	logger       *zap.Logger
	systemPrompt string
	maxMsgLen    int
}

// New creates a chat service.
func New(governor Governor, completer Completer, transcript Transcript, clk clock.Clock, systemPrompt string, maxMsgLen int, logger *zap.Logger) *Service {
	return &Service{
		governor:     governor,
		completer:    completer,
		transcript:   transcript,
		clk:          clk,
		logger:       logger,
		systemPrompt: systemPrompt,
		maxMsgLen:    maxMsgLen,
	}
}

// Result is the outcome of one exchange.
type Result struct {
	Reply    string
	Snapshot session.Snapshot
}

// Send runs one exchange: it validates the message, reserves the estimated
// token cost, calls the model with the session transcript as context, settles
// the reservation with the reported usage, and appends both turns to the
// transcript. A failed model call releases the reservation in full.
func (s *Service) Send(ctx context.Context, sessionID, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, fmt.Errorf("message is empty: %w", domain.ErrValidation)
	}
	if s.maxMsgLen > 0 && len(message) > s.maxMsgLen {
		return Result{}, fmt.Errorf("message exceeds %d characters: %w", s.maxMsgLen, domain.ErrValidation)
	}

	history, err := s.transcript.List(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load transcript: %w", err)
	}

	now := s.clk.Now()
	turns := make([]domain.Turn, 0, len(history)+2)
	if s.systemPrompt != "" {
		turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: s.systemPrompt, CreatedAt: now})
	}
	turns = append(turns, history...)
	userTurn := domain.Turn{Role: domain.RoleUser, Content: message, CreatedAt: now}
	turns = append(turns, userTurn)

	estimate := tokens.EstimateExchange(contents(turns))
	reservationID, _, err := s.governor.BeginExchange(ctx, sessionID, estimate)
	if err != nil {
		return Result{}, err
	}

	// The model call runs outside any session lock; the reservation keeps
	// the budget honest in the meantime.
	reply, err := s.completer.Complete(ctx, turns)
	if err != nil {
		if abortErr := s.governor.AbortExchange(ctx, sessionID, reservationID); abortErr != nil {
			s.logger.Error("failed to release reservation after model error",
				zap.String("session_id", sessionID),
				zap.String("reservation_id", reservationID),
				zap.Error(abortErr),
			)
		}
		return Result{}, fmt.Errorf("model call: %w", err)
	}

	snap, err := s.governor.FinishExchange(ctx, sessionID, reservationID, reply.InputTokens, reply.OutputTokens)
	if err != nil {
		return Result{}, fmt.Errorf("settle exchange: %w", err)
	}

	assistantTurn := domain.Turn{Role: domain.RoleAssistant, Content: reply.Text, CreatedAt: s.clk.Now()}
	if err := s.transcript.Append(ctx, sessionID, userTurn, assistantTurn); err != nil {
		// The budget is already settled; a lost transcript entry is logged
		// rather than failing the exchange.
		s.logger.Error("failed to append transcript",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return Result{Reply: reply.Text, Snapshot: snap}, nil
}

// History returns the stored transcript of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	return s.transcript.List(ctx, sessionID)
}

func contents(turns []domain.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}
