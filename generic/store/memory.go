// Package store provides SnapshotStore implementations.
package store

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[string][]byte
	saves       int
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]byte),
	}
}

// SaveCollections replaces the stored snapshot under one lock. Keys not in
// collections are dropped.
func (m *Memory) SaveCollections(_ context.Context, collections map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string][]byte, len(collections))
	for k, v := range collections {
		next[k] = append([]byte(nil), v...)
	}
	m.collections = next
	m.saves++
	return nil
}

func (m *Memory) LoadCollections(_ context.Context) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(m.collections))
	for k, v := range m.collections {
		result[k] = append([]byte(nil), v...)
	}
	return result, nil
}

// Saves returns how many SaveCollections calls have been made.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
