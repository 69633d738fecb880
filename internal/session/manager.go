package session

import (
	"log/slog"
	"sync"

	"ucontents-console/internal/platform"

	"github.com/google/uuid"
)

// Manager hands out one Store per gateway session ID. Stores are
// created lazily on first use and disposed on logout; there is no
// module-level session singleton.
type Manager struct {
	tokens TokenStore
	api    platform.API
	log    *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(tokens TokenStore, api platform.API, log *slog.Logger) *Manager {
	return &Manager{
		tokens: tokens,
		api:    api,
		log:    log,
		stores: make(map[string]*Store),
	}
}

func NewSessionID() string { return uuid.NewString() }

// Get returns the Store for a session ID, creating it if needed.
func (m *Manager) Get(sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stores[sessionID]; ok {
		return st
	}
	st := NewStore(sessionID, m.tokens, m.api, m.log)
	m.stores[sessionID] = st
	return st
}

// Dispose drops the in-memory Store. Durable state is cleared by the
// Store's own Logout; Dispose only releases the process-local handle.
func (m *Manager) Dispose(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, sessionID)
}

// ActiveSessions snapshots the currently materialized stores, for
// background jobs that refresh per-session server state.
func (m *Manager) ActiveSessions() []*Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Store, 0, len(m.stores))
	for _, st := range m.stores {
		out = append(out, st)
	}
	return out
}
