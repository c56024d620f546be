// Package engine drives the per-conversation message timeline: optimistic
// sends, history loads and the reconcile pass that replaces optimistic
// entries with the backend's authoritative record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-assistant/internal/gateway"
	"github.com/zhouzirui/chat-assistant/internal/model/chat"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrBackendUnavailable = errors.New("backend is not available")
	ErrSendInFlight       = errors.New("a send is already in flight")
)

// In-line assistant texts synthesized when a send fails, so the failure is
// visible in the timeline and not only as a transient notice.
const (
	replyErrorText   = "Sorry, I encountered an error. Please try again."
	networkErrorText = "Sorry, I couldn't process your message. Please check your connection and try again."
)

// Gateway is the slice of the backend client the engine needs.
type Gateway interface {
	SendMessage(ctx context.Context, message, conversationID string) (gateway.ChatResult, error)
	History(ctx context.Context, conversationID string) ([]chat.Message, error)
}

// Availability gates outbound sends on the most recent health probe.
type Availability interface {
	Reachable() bool
}

// Phase is the engine's position in the send/reconcile protocol for the
// active conversation.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseLoading
	PhaseReady
	PhaseSending
	PhaseReconciling
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSending:
		return "sending"
	case PhaseReconciling:
		return "reconciling"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Snapshot is an immutable view of the engine for rendering.
type Snapshot struct {
	Phase    Phase
	ActiveID string
	Timeline []chat.Message
}

// SendResult reports what a successful send produced.
type SendResult struct {
	ConversationID  string
	NewConversation bool
	Reply           string
}

// Engine owns the active conversation's timeline.
//
// Every fetch carries the generation counter current when it was issued;
// results whose generation is stale by the time they resolve are dropped, so
// switching conversations logically cancels in-flight work without any
// cancellation signal.
type Engine struct {
	mu sync.Mutex
	gw Gateway

	gate Availability
	log  zerolog.Logger

	phase      Phase
	activeID   string
	timeline   []chat.Message
	generation uint64
	loadFailed bool

	// OnConversationResolved fires when a send against a null-id conversation
	// comes back with a durable id. Set once during wiring.
	OnConversationResolved func(id string)
}

// New returns an Engine in the empty phase.
func New(gw Gateway, gate Availability, log zerolog.Logger) *Engine {
	return &Engine{
		gw:   gw,
		gate: gate,
		log:  log.With().Str("component", "engine").Logger(),
	}
}

// Snapshot copies the current state. The timeline slice is fresh on every
// call, so callers can render it without holding any lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Phase:    e.phase,
		ActiveID: e.activeID,
		Timeline: append([]chat.Message(nil), e.timeline...),
	}
}

// Select makes id the active conversation and returns the generation a
// follow-up LoadHistory must carry, plus whether a load is needed at all.
// Re-selecting the id that is already the most recently requested one is a
// no-op, unless its last load failed; then the fetch is retried. An empty id
// resets to the empty phase.
func (e *Engine) Select(id string) (gen uint64, load bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == e.activeID && id != "" && !e.loadFailed {
		return e.generation, false
	}

	e.generation++
	e.activeID = id
	e.loadFailed = false
	if id == "" {
		e.timeline = nil
		e.phase = PhaseEmpty
		return e.generation, false
	}

	// Previous timeline stays visible behind the loading indicator until the
	// new history lands.
	e.phase = PhaseLoading
	return e.generation, true
}

// LoadHistory fetches the confirmed timeline for id and applies it if the
// request is still the latest one. The swap is wholesale; the timeline is
// never patched element by element. On failure the previous timeline stays
// visible.
func (e *Engine) LoadHistory(ctx context.Context, id string, gen uint64) error {
	history, err := e.gw.History(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || id != e.activeID {
		e.log.Debug().Str("conversation", id).Uint64("generation", gen).Msg("dropping stale history result")
		return nil
	}

	if err != nil {
		e.loadFailed = true
		e.phase = PhaseReady
		return err
	}

	e.loadFailed = false
	e.timeline = history
	e.phase = PhaseReady
	return nil
}

// Send runs the optimistic-send protocol. The user's message is appended to
// the timeline before any network call; nothing the user typed is ever lost
// from view. On success the caller is expected to invoke Reconcile after a
// short delay.
func (e *Engine) Send(ctx context.Context, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if !e.gate.Reachable() {
		return SendResult{}, ErrBackendUnavailable
	}

	e.mu.Lock()
	switch e.phase {
	case PhaseSending, PhaseReconciling:
		e.mu.Unlock()
		return SendResult{}, ErrSendInFlight
	case PhaseEmpty, PhaseLoading, PhaseReady:
	}
	id := e.activeID
	// The send supersedes any history load still in flight for this
	// conversation; bumping the generation makes that load's late result
	// stale, so it can never replace the optimistic entry below.
	e.generation++
	gen := e.generation
	e.timeline = append(e.timeline, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
		Pending:   true,
	})
	e.phase = PhaseSending
	e.mu.Unlock()

	result, err := e.gw.SendMessage(ctx, text, id)

	e.mu.Lock()
	if gen != e.generation {
		// The user switched away mid-send; the result belongs to an abandoned
		// context and must not be applied.
		e.mu.Unlock()
		e.log.Debug().Str("conversation", id).Msg("dropping stale send result")
		return SendResult{}, nil
	}

	if err != nil {
		e.appendSynthesizedLocked(networkErrorText)
		e.phase = PhaseReady
		e.mu.Unlock()
		return SendResult{}, err
	}

	if result.Status != "success" || result.Response == "" {
		e.appendSynthesizedLocked(replyErrorText)
		e.phase = PhaseReady
		e.mu.Unlock()
		if result.Error != "" {
			return SendResult{}, errors.New(result.Error)
		}
		return SendResult{}, errors.New("failed to get response from AI")
	}

	resolved := ""
	if result.ConversationID != "" && result.ConversationID != id {
		resolved = result.ConversationID
		e.activeID = resolved
	}
	e.timeline = append(e.timeline, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   result.Response,
		Timestamp: time.Now().UTC(),
		Pending:   true,
	})
	e.phase = PhaseReconciling
	hook := e.OnConversationResolved
	e.mu.Unlock()

	if resolved != "" && hook != nil {
		hook(resolved)
	}

	return SendResult{
		ConversationID:  result.ConversationID,
		NewConversation: resolved != "",
		Reply:           result.Response,
	}, nil
}

// Reconcile replaces the optimistic timeline with the authoritative history.
// This is the only place optimistic messages are discarded, and only by
// wholesale replacement. A no-op unless a send just completed.
func (e *Engine) Reconcile(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != PhaseReconciling {
		e.mu.Unlock()
		return nil
	}
	id := e.activeID
	gen := e.generation
	e.mu.Unlock()

	history, err := e.gw.History(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || id != e.activeID {
		e.log.Debug().Str("conversation", id).Msg("dropping stale reconcile result")
		return nil
	}

	if err != nil {
		// Keep the optimistic entries; the next load will converge.
		e.phase = PhaseReady
		return err
	}

	e.loadFailed = false
	e.timeline = history
	e.phase = PhaseReady
	return nil
}

// Clear resets to the empty phase without deleting anything server-side.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.activeID = ""
	e.timeline = nil
	e.phase = PhaseEmpty
}

// appendSynthesizedLocked adds a locally-authored assistant message. Callers
// hold the lock.
func (e *Engine) appendSynthesizedLocked(text string) {
	e.timeline = append(e.timeline, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   text,
		Timestamp: time.Now().UTC(),
	})
}
