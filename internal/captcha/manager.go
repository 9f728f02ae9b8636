package captcha

import (
	"sync"

	"github.com/dodocap/captcha-server/internal/config"
)

// Manager is a thread-safe registry mapping connection IDs to their captcha
// sessions. The transport layer creates a session when a connection is
// established and removes it, closing the session and revoking its token,
// when the connection goes away.
type Manager struct {
	cfg      config.Config
	gen      *CodeGenerator
	renderer *Renderer
	registry *Registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager that builds sessions from the shared
// generator, renderer, and token registry.
func NewManager(cfg config.Config, gen *CodeGenerator, renderer *Renderer, registry *Registry) *Manager {
	return &Manager{
		cfg:      cfg,
		gen:      gen,
		renderer: renderer,
		registry: registry,
		sessions: make(map[string]*Session),
	}
}

// Create builds a session for the given connection ID and outbound channel
// and registers it. Creating over an existing ID closes the old session
// first; connection IDs are UUIDs so this does not happen in practice.
func (m *Manager) Create(id string, sender Sender) *Session {
	sess := NewSession(id, sender, m.cfg, m.gen, m.renderer, m.registry)

	m.mu.Lock()
	old := m.sessions[id]
	m.sessions[id] = sess
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return sess
}

// Get returns the session for the given connection ID, or nil if not found.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	sess := m.sessions[id]
	m.mu.RUnlock()
	return sess
}

// Remove unregisters and closes the session for the given connection ID.
// It is a no-op if the session was already removed.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// CloseAll closes every session. Used during graceful shutdown so all tokens
// are revoked before the process exits.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	n := len(m.sessions)
	m.mu.RUnlock()
	return n
}
