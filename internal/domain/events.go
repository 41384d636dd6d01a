package domain

import "time"

// KeyPrefix namespaces all storage keys.
const KeyPrefix = "sessiond:"

// EventType classifies audit log entries.
type EventType string

const (
	EventSessionCreated    EventType = "session_created"
	EventSessionStarted    EventType = "session_started"
	EventSessionPaused     EventType = "session_paused"
	EventSessionResumed    EventType = "session_resumed"
	EventSessionCompleted  EventType = "session_completed"
	EventSessionExpired    EventType = "session_expired"
	EventTimeExtended      EventType = "time_extended"
	EventTokensExtended    EventType = "tokens_extended"
	EventExchangeStarted   EventType = "exchange_started"
	EventExchangeCompleted EventType = "exchange_completed"
	EventExchangeAborted   EventType = "exchange_aborted"
)

// Event is one append-only audit log entry for a session.
type Event struct {
	SessionID   string
	Type        EventType
	Description string
	Data        map[string]any
	CreatedAt   time.Time
}
