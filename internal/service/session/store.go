// Package session owns the authenticated identity and its persistence across
// restarts. One JSON record under the state dir plays the role durable client
// storage plays in a browser.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
)

// stateFileName is the fixed storage key for the persisted identity.
const stateFileName = "session.json"

// Gateway is the slice of the backend client the store needs.
type Gateway interface {
	Login(ctx context.Context, username, password string) (chat.User, error)
	Register(ctx context.Context, username, email, password string) (chat.User, error)
}

// Store persists the authenticated identity. It is the single writer of the
// session file; everything else only reads the returned user value.
type Store struct {
	gw   Gateway
	path string
	log  zerolog.Logger
}

// NewStore returns a Store keeping its record under stateDir.
func NewStore(gw Gateway, stateDir string, log zerolog.Logger) *Store {
	return &Store{
		gw:   gw,
		path: filepath.Join(stateDir, stateFileName),
		log:  log.With().Str("component", "session").Logger(),
	}
}

// Restore reads the persisted identity without a backend round trip. The
// stored record is trusted as-is; there is no server-side re-verification or
// expiry. A missing record yields (nil, nil).
func (s *Store) Restore() (*chat.User, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var user chat.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if user.Username == "" {
		return nil, nil
	}

	s.log.Info().Str("username", user.Username).Msg("session restored from disk")
	return &user, nil
}

// Login exchanges credentials for an identity and persists it. Auth failures
// are returned verbatim for display.
func (s *Store) Login(ctx context.Context, username, password string) (*chat.User, error) {
	user, err := s.gw.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.persist(user); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", user.Username).Msg("logged in")
	return &user, nil
}

// Register creates an account. It does not log the user in; the caller is
// expected to prompt for a login afterwards.
func (s *Store) Register(ctx context.Context, username, email, password string) (*chat.User, error) {
	user, err := s.gw.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("username", user.Username).Msg("registered")
	return &user, nil
}

// Logout removes the persisted identity. Clearing dependent state (registry,
// timeline) is the caller's responsibility.
func (s *Store) Logout() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	s.log.Info().Msg("logged out")
	return nil
}

func (s *Store) persist(user chat.User) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
