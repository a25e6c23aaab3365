// Package session holds per-session identity in memory, separate from
// the durable store. Sessions do not survive a process restart;
// re-authentication re-derives identity from the store.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"depenses/internal/models"
)

type entry struct {
	user      models.UserView
	expiresAt time.Time
}

// Manager is an in-memory session table with a rolling TTL.
type Manager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

// NewManager creates a session manager whose sessions expire after ttl
// of inactivity.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

// Create stores the user view under a fresh random token.
func (m *Manager) Create(user models.UserView) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = entry{user: user, expiresAt: m.now().Add(m.ttl)}
	return token, nil
}

// Get resolves a token to its user view. A hit past the halfway point of
// the TTL renews the session, so active users stay logged in while idle
// sessions expire.
func (m *Manager) Get(token string) (models.UserView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[token]
	if !ok {
		return models.UserView{}, false
	}
	now := m.now()
	if !e.expiresAt.After(now) {
		delete(m.sessions, token)
		return models.UserView{}, false
	}
	if e.expiresAt.Sub(now) < m.ttl/2 {
		e.expiresAt = now.Add(m.ttl)
		m.sessions[token] = e
	}
	return e.user, true
}

// Delete removes a session. Deleting an unknown token is a no-op.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
