package chat

import "time"

// Conversation is a registry entry owned by the authenticated user.
// An empty ID denotes a conversation that exists only as a UI intent; the
// backend assigns a durable identifier on the first successful exchange.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
