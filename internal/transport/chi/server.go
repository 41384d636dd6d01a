// Package chi exposes the session governor over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/domain"
	domses "github.com/proctorly/sessiond/internal/domain/session"
	chatuc "github.com/proctorly/sessiond/internal/usecase/chat"
	governoruc "github.com/proctorly/sessiond/internal/usecase/governor"
	healthuc "github.com/proctorly/sessiond/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	governor      *governoruc.Service
	chat          *chatuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(governor *governoruc.Service, chat *chatuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		governor: governor,
		chat:     chat,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		budgetInsufficientHandler,
		transitionHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrSessionExists, http.StatusConflict, CodeSessionExists),
		sentinelHandler(domain.ErrSessionAlreadyTerminal, http.StatusConflict, CodeSessionTerminal),
		sentinelHandler(domain.ErrReservationNotFound, http.StatusNotFound, CodeReservationNotFound),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, CodeModelProviderError),
	}
	return s
}

// Routes mounts all API endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.getHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/start", s.startSession)
			r.Post("/pause", s.pauseSession)
			r.Post("/resume", s.resumeSession)
			r.Post("/complete", s.completeSession)
			r.Post("/extend-time", s.extendTime)
			r.Post("/extend-tokens", s.extendTokens)
			r.Get("/events", s.listEvents)
			r.Get("/transcript", s.getTranscript)
			r.Post("/messages", s.postMessage)
		})
	})
}

// createSession handles POST /sessions.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TimeLimitSec < 0 || req.TokenBudget < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limits must be non-negative")
		return
	}

	snap, err := s.governor.Create(r.Context(), governoruc.CreateParams{
		ID:          req.ID,
		TimeLimit:   time.Duration(req.TimeLimitSec) * time.Second,
		TokenBudget: req.TokenBudget,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToResponse(snap))
}

// listSessions handles GET /sessions.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	status := domses.Status(r.URL.Query().Get("status"))
	switch status {
	case "", domses.StatusCreated, domses.StatusActive, domses.StatusPaused,
		domses.StatusCompleted, domses.StatusExpired:
	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "unknown status filter")
		return
	}

	snaps, err := s.governor.List(r.Context(), status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]SessionResponse, len(snaps))
	for i, snap := range snaps {
		items[i] = sessionToResponse(snap)
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Items: items})
}

// getSession handles GET /sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.governor.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.governor.Start)
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.governor.Pause)
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.governor.Resume)
}

func (s *Server) completeSession(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.governor.Complete)
}

// transition runs one lifecycle operation and renders the resulting ledger.
func (s *Server) transition(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string) (domses.Snapshot, error),
) {
	snap, err := op(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

// extendTime handles POST /sessions/{sessionID}/extend-time.
func (s *Server) extendTime(w http.ResponseWriter, r *http.Request) {
	var req ExtendTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap, err := s.governor.ExtendTime(r.Context(), chi.URLParam(r, "sessionID"),
		time.Duration(req.ExtraSec)*time.Second)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

// extendTokens handles POST /sessions/{sessionID}/extend-tokens.
func (s *Server) extendTokens(w http.ResponseWriter, r *http.Request) {
	var req ExtendTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap, err := s.governor.ExtendTokens(r.Context(), chi.URLParam(r, "sessionID"), req.ExtraTokens)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

// listEvents handles GET /sessions/{sessionID}/events.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.governor.Events(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]EventResponse, len(events))
	for i, ev := range events {
		items[i] = EventResponse{
			Type:        string(ev.Type),
			Description: ev.Description,
			Data:        ev.Data,
			CreatedAt:   ev.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, EventListResponse{Items: items})
}

// getTranscript handles GET /sessions/{sessionID}/transcript.
func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := s.chat.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]TurnResponse, len(turns))
	for i, turn := range turns {
		items[i] = TurnResponse{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{Items: items})
}

// postMessage handles POST /sessions/{sessionID}/messages.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := s.chat.Send(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Reply:   res.Reply,
		Session: sessionToResponse(res.Snapshot),
	})
}

// getHealth handles GET /health.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	writeJSON(w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the sentinel text for known errors and a generic
// message otherwise, keeping internals out of responses.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrSessionExists,
		domain.ErrInvalidStateTransition,
		domain.ErrSessionAlreadyTerminal,
		domain.ErrBudgetInsufficient,
		domain.ErrReservationNotFound,
		domain.ErrValidation,
		domain.ErrRateLimited,
		domain.ErrModelProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// budgetInsufficientHandler renders the shortfall detail alongside the error.
func budgetInsufficientHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrBudgetInsufficient) {
		return false
	}
	var be *domain.BudgetInsufficientError
	if errors.As(err, &be) {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"code":             CodeBudgetInsufficient,
			"message":          msg,
			"tokens_needed":    be.Needed,
			"tokens_remaining": be.Remaining,
		})
		return true
	}
	writeError(w, http.StatusPaymentRequired, CodeBudgetInsufficient, msg)
	return true
}

// transitionHandler renders the attempted operation and current state.
func transitionHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		return false
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    CodeInvalidState,
			"message": msg,
			"op":      te.Op,
			"state":   te.State,
		})
		return true
	}
	writeError(w, http.StatusConflict, CodeInvalidState, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
