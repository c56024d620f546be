package registry_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/registry"
)

type fakeGateway struct {
	conversations []chat.Conversation
	nextID        int

	listErr   error
	createErr error
	deleteErr error
}

func (f *fakeGateway) ListConversations(context.Context) ([]chat.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]chat.Conversation(nil), f.conversations...), nil
}

func (f *fakeGateway) CreateConversation(_ context.Context, title string) (chat.Conversation, error) {
	if f.createErr != nil {
		return chat.Conversation{}, f.createErr
	}
	f.nextID++
	conv := chat.Conversation{ID: strconv.Itoa(f.nextID), Title: title, CreatedAt: time.Now().UTC()}
	f.conversations = append(f.conversations, conv)
	return conv, nil
}

func (f *fakeGateway) DeleteConversation(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, conv := range f.conversations {
		if conv.ID == id {
			f.conversations = append(f.conversations[:i], f.conversations[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestRefreshReplacesWholesale(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{
		{ID: "2", Title: "b"},
		{ID: "1", Title: "a"},
	}}
	reg := registry.New(gw, zerolog.Nop())

	require.NoError(t, reg.Refresh(context.Background()))

	list := reg.List()
	require.Len(t, list, 2)
	// Server order is preserved, never re-sorted client-side.
	assert.Equal(t, "2", list[0].ID)
	assert.Equal(t, "1", list[1].ID)
}

func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))

	gw.listErr = errors.New("boom")
	require.Error(t, reg.Refresh(context.Background()))
	assert.Len(t, reg.List(), 1)
}

func TestCreateSelectsNewConversation(t *testing.T) {
	gw := &fakeGateway{}
	reg := registry.New(gw, zerolog.Nop())

	conv, err := reg.Create(context.Background(), "New Conversation")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, reg.Active())

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
}

func TestCreateFailureLeavesRegistryUntouched(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	gw.createErr = errors.New("boom")
	_, err := reg.Create(context.Background(), "nope")
	require.Error(t, err)
	assert.Len(t, reg.List(), 1)
	assert.Equal(t, "1", reg.Active())
}

func TestCreateRefreshFailureKeepsCursor(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	// Creation succeeds server-side but the follow-up list fetch fails.
	gw.listErr = errors.New("boom")
	conv, err := reg.Create(context.Background(), "orphan")
	require.Error(t, err)
	assert.NotEmpty(t, conv.ID)

	// The cursor must not move to a conversation the local list cannot show;
	// a later refresh picks it up.
	assert.Equal(t, "1", reg.Active())
	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)
}

func TestDeleteActiveClearsCursor(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{
		{ID: "1", Title: "a"},
		{ID: "2", Title: "b"},
	}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	require.NoError(t, reg.Delete(context.Background(), "1"))

	// Cursor cleared, nothing auto-selected.
	assert.Equal(t, "", reg.Active())
	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)
}

func TestDeleteInactiveKeepsCursor(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{
		{ID: "1", Title: "a"},
		{ID: "2", Title: "b"},
	}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	require.NoError(t, reg.Delete(context.Background(), "2"))
	assert.Equal(t, "1", reg.Active())
}

func TestDeleteFailureLeavesRegistryUntouched(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	gw.deleteErr = errors.New("boom")
	require.Error(t, reg.Delete(context.Background(), "1"))
	assert.Len(t, reg.List(), 1)
	assert.Equal(t, "1", reg.Active())
}

func TestAdoptSelectsAndRefreshes(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "7", Title: "hello"}}}
	reg := registry.New(gw, zerolog.Nop())

	require.NoError(t, reg.Adopt(context.Background(), "7"))
	assert.Equal(t, "7", reg.Active())
	assert.Len(t, reg.List(), 1)
}

func TestResetDropsEverything(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))
	reg.Select("1")

	reg.Reset()
	assert.Empty(t, reg.List())
	assert.Equal(t, "", reg.Active())
}

func TestFind(t *testing.T) {
	gw := &fakeGateway{conversations: []chat.Conversation{{ID: "1", Title: "a"}}}
	reg := registry.New(gw, zerolog.Nop())
	require.NoError(t, reg.Refresh(context.Background()))

	conv, ok := reg.Find("1")
	require.True(t, ok)
	assert.Equal(t, "a", conv.Title)

	_, ok = reg.Find("404")
	assert.False(t, ok)
}
