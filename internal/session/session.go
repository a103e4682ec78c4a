// Package session manages the persisted authentication session.
//
// A session is a bearer token issued by the auth backend. The token is
// parsed locally without signature verification, only to extract the user
// id and email claims for display and row scoping; actual enforcement
// happens server-side, where every request carries the token and row-level
// security checks it.
package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/driftnotes/drift/internal/entity"
)

// Manager persists the session token and exposes the identity it carries.
// All methods are safe for concurrent use.
type Manager struct {
	path   string
	logger *log.Logger

	mu       sync.Mutex
	token    string
	current  *entity.Identity
	onChange func(*entity.Identity)
}

// NewManager creates a session manager storing its token at path. If
// logger is nil, a default logger writing to stderr is used.
func NewManager(path string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}
	return &Manager{path: path, logger: logger}
}

// OnChange registers a listener invoked after every sign-in and sign-out
// with the new identity (nil on sign-out). Only one listener is held; the
// orchestrator wiring is the expected consumer.
func (m *Manager) OnChange(fn func(*entity.Identity)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// notify fires the listener outside the manager lock.
func (m *Manager) notify(id *entity.Identity) {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// Restore loads a previously persisted session. Returns the identity, or
// nil when no valid session exists (missing file, unreadable token, or an
// expired session). Restore never fails hard; a bad session file just
// means signed-out.
func (m *Manager) Restore() *entity.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Printf("Warning: failed to read session file: %v", err)
		}
		return nil
	}

	token := strings.TrimSpace(string(data))
	id, err := identityFromToken(token)
	if err != nil {
		m.logger.Printf("Stored session is unusable: %v", err)
		return nil
	}

	m.token = token
	m.current = id
	restored := *id
	return &restored
}

// SignIn validates and persists a session token, returning the identity
// it carries.
func (m *Manager) SignIn(token string) (*entity.Identity, error) {
	token = strings.TrimSpace(token)
	id, err := identityFromToken(token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(m.path, []byte(token), 0600); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.token = token
	m.current = id
	signed := *id
	m.mu.Unlock()

	m.notify(&signed)
	return &signed, nil
}

// SignOut discards the session. Signing out with no session is a no-op.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.token = ""
	m.current = nil
	err := os.Remove(m.path)
	m.mu.Unlock()

	m.notify(nil)

	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Current returns the signed-in identity, or nil when signed out.
func (m *Manager) Current() *entity.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	cur := *m.current
	return &cur
}

// Token returns the raw session token, or empty when signed out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// identityFromToken extracts the identity claims from a bearer token.
// The signature is NOT verified here; see the package comment.
func identityFromToken(token string) (*entity.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject claim")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().After(time.Unix(int64(exp), 0)) {
			return nil, fmt.Errorf("session expired")
		}
	}

	email, _ := claims["email"].(string)
	id := entity.NewIdentity(sub, email)
	return &id, nil
}
