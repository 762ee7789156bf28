package cache

import (
	"bytes"
	"context"
	"sync"
)

// DefaultMaxEntries bounds a Memory cache created with NewMemory(0).
const DefaultMaxEntries = 10000

// Memory is an in-process Cache. When it reaches its entry limit it starts
// a fresh generation rather than evicting selectively.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	max     int
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a Memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{entries: make(map[string][]byte), max: maxEntries}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.max {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = bytes.Clone(value)
	return nil
}

func (m *Memory) InvalidateAll(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// Len returns the number of cached values.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) InvalidateAll(context.Context) error               { return nil }
