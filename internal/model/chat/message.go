package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation timeline.
//
// Messages carry one of two provenances: optimistic ones authored locally
// before the backend has confirmed them (Pending is true, Timestamp is
// provisional) and confirmed ones fetched from history (Pending is false,
// Timestamp is authoritative). ID is client-local and never sent upstream.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
}
