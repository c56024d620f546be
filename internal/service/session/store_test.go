package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-assistant/internal/gateway"
	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/session"
)

type fakeGateway struct {
	loginErr error
	user     chat.User
}

func (f *fakeGateway) Login(_ context.Context, username, _ string) (chat.User, error) {
	if f.loginErr != nil {
		return chat.User{}, f.loginErr
	}
	user := f.user
	user.Username = username
	return user, nil
}

func (f *fakeGateway) Register(_ context.Context, username, email, _ string) (chat.User, error) {
	return chat.User{ID: "9", Username: username, Email: email}, nil
}

func TestLoginPersistsIdentity(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(&fakeGateway{user: chat.User{ID: "1", Email: "alice@example.com"}}, dir, zerolog.Nop())

	user, err := store.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	raw, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"alice"`)
}

func TestRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(&fakeGateway{user: chat.User{ID: "1", Email: "alice@example.com"}}, dir, zerolog.Nop())

	_, err := store.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	// A fresh store sees the persisted identity without any backend call.
	restored, err := session.NewStore(&fakeGateway{}, dir, zerolog.Nop()).Restore()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "alice", restored.Username)
	assert.Equal(t, "alice@example.com", restored.Email)
}

func TestRestoreWithoutSession(t *testing.T) {
	store := session.NewStore(&fakeGateway{}, t.TempDir(), zerolog.Nop())

	user, err := store.Restore()
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestRestoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("not json"), 0o600))

	_, err := session.NewStore(&fakeGateway{}, dir, zerolog.Nop()).Restore()
	require.Error(t, err)
}

func TestLoginFailureDoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(&fakeGateway{loginErr: &gateway.AuthError{Message: "Invalid username or password"}}, dir, zerolog.Nop())

	_, err := store.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var authErr *gateway.AuthError
	assert.ErrorAs(t, err, &authErr)

	_, statErr := os.Stat(filepath.Join(dir, "session.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogoutClearsIdentity(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(&fakeGateway{}, dir, zerolog.Nop())

	_, err := store.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, store.Logout())

	user, err := store.Restore()
	require.NoError(t, err)
	assert.Nil(t, user)

	// Logging out twice is fine.
	require.NoError(t, store.Logout())
}

func TestRegisterDoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(&fakeGateway{}, dir, zerolog.Nop())

	user, err := store.Register(context.Background(), "bob", "bob@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	restored, err := store.Restore()
	require.NoError(t, err)
	assert.Nil(t, restored)
}
