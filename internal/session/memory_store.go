package session

import (
	"context"
	"sync"
)

// MemoryTokenStore is an in-memory TokenStore for tests.
// It is not intended for production use.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]PersistedToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]PersistedToken)}
}

func (s *MemoryTokenStore) Load(ctx context.Context, sessionID string) (PersistedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[sessionID]
	if !ok || t.Token == "" {
		return PersistedToken{}, ErrNoToken
	}
	return t, nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, sessionID string, t PersistedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = t
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}
