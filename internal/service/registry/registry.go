// Package registry tracks the ordered set of conversations belonging to the
// session plus the active-conversation cursor. The local list is never merged
// or predicted: every mutation is followed by a full refresh from the backend
// so the registry converges with server truth within one round trip.
package registry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
)

// Gateway is the slice of the backend client the registry needs.
type Gateway interface {
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	CreateConversation(ctx context.Context, title string) (chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// Registry holds the conversation list in server order and the active cursor.
type Registry struct {
	mu sync.RWMutex
	gw Gateway

	conversations []chat.Conversation
	activeID      string

	log zerolog.Logger
}

// New returns an empty Registry.
func New(gw Gateway, log zerolog.Logger) *Registry {
	return &Registry{
		gw:  gw,
		log: log.With().Str("component", "registry").Logger(),
	}
}

// Refresh replaces the local list wholesale from the backend. On failure the
// previous list stays untouched.
func (r *Registry) Refresh(ctx context.Context) error {
	conversations, err := r.gw.ListConversations(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.conversations = conversations
	r.mu.Unlock()

	r.log.Debug().Int("count", len(conversations)).Msg("registry refreshed")
	return nil
}

// List returns a copy of the conversations in server order.
func (r *Registry) List() []chat.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]chat.Conversation(nil), r.conversations...)
}

// Active returns the active conversation id, empty when none is selected.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Find looks up a conversation by id.
func (r *Registry) Find(id string) (chat.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return chat.Conversation{}, false
}

// Select moves the active cursor. Pure state change; loading the timeline for
// the new id is the caller's job.
func (r *Registry) Select(id string) {
	r.mu.Lock()
	r.activeID = id
	r.mu.Unlock()
}

// Create asks the backend for a new conversation, refreshes the list and
// selects the new id. A failed creation leaves list and cursor untouched. If
// the refresh fails, the cursor also stays where it was: the conversation
// exists server-side but is not in the local list yet, and selecting an id
// the engine never adopts would split the active-conversation view.
func (r *Registry) Create(ctx context.Context, title string) (chat.Conversation, error) {
	conv, err := r.gw.CreateConversation(ctx, title)
	if err != nil {
		return chat.Conversation{}, err
	}

	if err := r.Refresh(ctx); err != nil {
		return conv, err
	}
	r.Select(conv.ID)
	return conv, nil
}

// Delete removes a conversation server-side, refreshes the list and clears
// the cursor if the deleted conversation was active. No replacement is
// auto-selected.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.gw.DeleteConversation(ctx, id); err != nil {
		return err
	}

	refreshErr := r.Refresh(ctx)

	r.mu.Lock()
	if r.activeID == id {
		r.activeID = ""
	}
	r.mu.Unlock()

	return refreshErr
}

// Adopt selects an id the backend minted during a send and refreshes so the
// list picks up the new conversation.
func (r *Registry) Adopt(ctx context.Context, id string) error {
	r.Select(id)
	return r.Refresh(ctx)
}

// Reset drops all local state. Used on logout.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.conversations = nil
	r.activeID = ""
	r.mu.Unlock()
}
