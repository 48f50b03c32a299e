package cache

import (
	"context"
	"sync"
)

// Memory is an in-process cache backed by a map.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]string
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]string)}
}

func (m *Memory) Lookup(_ context.Context, key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *Memory) Store(_ context.Context, key Key, translation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = translation
	return nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]string)
	return nil
}
