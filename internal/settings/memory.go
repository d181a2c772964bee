package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps the configuration in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	cfg *Config
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored configuration, or nil.
func (m *MemoryStore) Get(context.Context) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, nil
	}
	cp := *m.cfg
	return &cp, nil
}

// Set replaces the stored configuration.
func (m *MemoryStore) Set(_ context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}
