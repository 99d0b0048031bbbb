// Package session stores the client-held session token in session.toml
// inside the .lilly/ directory.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/dotdir"
)

const (
	sessionFile = "session.toml"

	currentVersion = 0
)

// Session is the persisted client session.
type Session struct {
	Version int    `toml:"version"`
	Token   string `toml:"token,omitempty"`

	// APITarget is the server that issued Token.
	APITarget string `toml:"api_target,omitempty"`
}

// Manager reads and writes session.toml.
type Manager struct {
	targetPath string
	now        func() time.Time
}

// NewManager creates a session Manager. If override is non-empty it is used
// as the .lilly/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().File(override, sessionFile)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: path, now: time.Now}, nil
}

// Load reads session.toml. Returns an empty Session if the file does not exist.
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	s := &Session{}
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return s, nil
}

// Save writes the session with 0600 permissions.
func (m *Manager) Save(s *Session) error {
	if s == nil {
		return errors.New("cannot save nil session")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// SaveToken stores a freshly issued token for apiTarget.
func (m *Manager) SaveToken(token, apiTarget string) error {
	return m.Save(&Session{
		Version:   currentVersion,
		Token:     token,
		APITarget: apiTarget,
	})
}

// Clear removes the session file. Returns nil if it is already gone.
func (m *Manager) Clear() error {
	if err := os.Remove(m.targetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// Current decodes the stored token for display. It returns nil claims when
// no one is signed in. A token that cannot be decoded or has expired is
// cleared and treated as signed out.
func (m *Manager) Current() (*auth.Claims, error) {
	s, err := m.Load()
	if err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, nil
	}

	claims, err := auth.DecodeUnverified(s.Token)
	if err != nil || !claims.ExpiresAt.After(m.now()) {
		return nil, m.Clear()
	}

	return claims, nil
}

// Nickname returns the signed-in nickname, or "" when signed out.
func (m *Manager) Nickname() (string, error) {
	claims, err := m.Current()
	if err != nil || claims == nil {
		return "", err
	}
	return claims.Nickname, nil
}

// Token returns the stored raw token, or "" when signed out.
func (m *Manager) Token() (string, error) {
	if _, err := m.Current(); err != nil {
		return "", err
	}
	s, err := m.Load()
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// GetTarget returns the resolved path to the session file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}
