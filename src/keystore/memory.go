package keystore

import (
	"fmt"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

// Memory keeps entries in insertion order. Nothing survives the process.
type Memory struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, *Entry]
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: orderedmap.NewOrderedMap[string, *Entry]()}
}

func (m *Memory) Put(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Set(e.ID, e.Clone())
	return nil
}

func (m *Memory) Get(id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

func (m *Memory) List() ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]*Entry, 0, m.entries.Len())
	for el := m.entries.Front(); el != nil; el = el.Next() {
		entries = append(entries, el.Value.Clone())
	}
	return entries, nil
}

func (m *Memory) Close() error { return nil }
