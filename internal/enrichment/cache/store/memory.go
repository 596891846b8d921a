// Package store holds the cache.Store implementations. The memory store
// serves tests and one-off runs; the others survive restarts.
package store

import (
	"context"
	"sync"

	"salgsmotor/internal/enrichment/cache"
)

// Memory keeps entries in a map.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]cache.Entry)}
}

func (s *Memory) Load(_ context.Context, orgnr string) (*cache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[orgnr]
	if !ok {
		return nil, cache.ErrNotFound
	}
	e.Bundle = e.Bundle.Clone()
	return &e, nil
}

func (s *Memory) Save(_ context.Context, entry cache.Entry) error {
	entry.Bundle = entry.Bundle.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.OrgNumber] = entry
	return nil
}

// Len reports the number of entries.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
