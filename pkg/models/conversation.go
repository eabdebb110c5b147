package models

import "time"

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCallRecord is the persisted trace of one tool call attached to an
// assistant message, preserving traceability from a reply back to the exact
// commands and results it reflects.
type ToolCallRecord struct {
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	Status      ResultStatus   `json:"status"`
	Payload     map[string]any `json:"payload,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// Message is a single conversation turn entry.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Conversation is an append-only, ordered sequence of messages owned by a
// single user. It is created implicitly on the first appended message and is
// never edited or truncated.
type Conversation struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Messages []Message `json:"messages"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}
