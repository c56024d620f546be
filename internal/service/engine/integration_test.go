package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-assistant/internal/gateway"
	"github.com/zhouzirui/chat-assistant/internal/gateway/gatewaytest"
	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/engine"
	"github.com/zhouzirui/chat-assistant/internal/service/health"
	"github.com/zhouzirui/chat-assistant/internal/service/registry"
	"github.com/zhouzirui/chat-assistant/internal/service/session"
)

type stack struct {
	srv      *gatewaytest.Server
	client   *gateway.Client
	sessions *session.Store
	registry *registry.Registry
	gate     *health.Gate
	engine   *engine.Engine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	srv := gatewaytest.NewServer()
	t.Cleanup(srv.Close)

	client := gateway.New(srv.URL(), 5*time.Second, zerolog.Nop())
	gate := health.NewGate(client, zerolog.Nop())
	reg := registry.New(client, zerolog.Nop())
	eng := engine.New(client, gate, zerolog.Nop())
	eng.OnConversationResolved = func(id string) {
		_ = reg.Adopt(context.Background(), id)
	}

	return &stack{
		srv:      srv,
		client:   client,
		sessions: session.NewStore(client, t.TempDir(), zerolog.Nop()),
		registry: reg,
		gate:     gate,
		engine:   eng,
	}
}

// Full walk of the happy path: login, create, send, reconcile, delete.
func TestLoginCreateSendReconcileScenario(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.srv.AddUser("alice", "alice@example.com", "pw")
	s.srv.Reply = func(string) string { return "Hello, Alice!" }

	require.True(t, s.gate.Check(ctx))

	user, err := s.sessions.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NoError(t, s.registry.Refresh(ctx))
	assert.Empty(t, s.registry.List())

	conv, err := s.registry.Create(ctx, "New Conversation")
	require.NoError(t, err)
	require.Len(t, s.registry.List(), 1)
	assert.Equal(t, conv.ID, s.registry.Active())

	gen, load := s.engine.Select(conv.ID)
	require.True(t, load)
	require.NoError(t, s.engine.LoadHistory(ctx, conv.ID, gen))
	assert.Empty(t, s.engine.Snapshot().Timeline)

	result, err := s.engine.Send(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Alice!", result.Reply)

	snap := s.engine.Snapshot()
	require.Len(t, snap.Timeline, 2)
	assert.True(t, snap.Timeline[0].Pending)
	assert.True(t, snap.Timeline[1].Pending)

	require.NoError(t, s.engine.Reconcile(ctx))

	snap = s.engine.Snapshot()
	require.Len(t, snap.Timeline, 2)
	assert.Equal(t, chat.RoleUser, snap.Timeline[0].Role)
	assert.Equal(t, "hi", snap.Timeline[0].Content)
	assert.Equal(t, chat.RoleAssistant, snap.Timeline[1].Role)
	for _, msg := range snap.Timeline {
		assert.False(t, msg.Pending)
		assert.False(t, msg.Timestamp.IsZero())
	}

	require.NoError(t, s.registry.Delete(ctx, conv.ID))
	assert.Equal(t, "", s.registry.Active())
	assert.Empty(t, s.registry.List())
}

// A send into a null-id conversation mints exactly one durable conversation
// and the registry picks it up through the resolution hook.
func TestNullConversationBecomesDurable(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	require.True(t, s.gate.Check(ctx))

	result, err := s.engine.Send(ctx, "first message ever")
	require.NoError(t, err)
	require.True(t, result.NewConversation)
	require.NotEmpty(t, result.ConversationID)

	assert.Equal(t, result.ConversationID, s.registry.Active())
	list := s.registry.List()
	require.Len(t, list, 1)
	assert.Equal(t, result.ConversationID, list[0].ID)

	require.NoError(t, s.engine.Reconcile(ctx))
	snap := s.engine.Snapshot()
	assert.Equal(t, result.ConversationID, snap.ActiveID)
	require.Len(t, snap.Timeline, 2)
}

// Probe down: sends are rejected before the wire, reads still work.
func TestGateClosedBlocksWritesNotReads(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	id := s.srv.SeedConversation("kept", [2]string{"user", "hi"}, [2]string{"assistant", "hello"})

	require.True(t, s.gate.Check(ctx))
	s.srv.SetHealthy(false)
	require.False(t, s.gate.Check(ctx))

	before := s.srv.ChatCalls()
	_, err := s.engine.Send(ctx, "blocked")
	require.ErrorIs(t, err, engine.ErrBackendUnavailable)
	assert.Equal(t, before, s.srv.ChatCalls())
	assert.Empty(t, s.engine.Snapshot().Timeline)

	// History remains browsable; only /health reports failure.
	gen, load := s.engine.Select(id)
	require.True(t, load)
	require.NoError(t, s.engine.LoadHistory(ctx, id, gen))
	assert.Len(t, s.engine.Snapshot().Timeline, 2)
}

// Reads are idempotent: load, reload, identical ordered sequence.
func TestHistoryRoundTrip(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	id := s.srv.SeedConversation("seeded",
		[2]string{"user", "one"},
		[2]string{"assistant", "two"},
		[2]string{"user", "three"},
	)

	gen, _ := s.engine.Select(id)
	require.NoError(t, s.engine.LoadHistory(ctx, id, gen))
	first := s.engine.Snapshot().Timeline

	_, load := s.engine.Select(id)
	assert.False(t, load)
	require.NoError(t, s.engine.LoadHistory(ctx, id, gen))
	second := s.engine.Snapshot().Timeline

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Role, second[i].Role)
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].Timestamp, second[i].Timestamp)
	}
}
