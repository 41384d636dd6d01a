package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session transcript.
type Turn struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Reply is a model completion with its provider-reported usage.
type Reply struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
