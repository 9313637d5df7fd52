package chat

import (
	"context"
	"sync"

	"cabinetquote/internal/ai"
)

// MemoryStore keeps history in process memory; it is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]ai.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]ai.ChatMessage)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]ai.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.sessions[key]
	out := make([]ai.ChatMessage, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, messages []ai.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]ai.ChatMessage, len(messages))
	copy(stored, messages)
	m.sessions[key] = stored
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
