package webcache

import (
	"context"
	"sync"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/models"
)

type memoryEntry struct {
	key       string
	payload   string
	expiresAt time.Time
}

// MemoryStore is a bounded in-process store. Cleanup drops expired entries
// first, then the oldest fifth while still over the entry budget.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*memoryEntry
	order      []string // insertion order, oldest first
	now        func() time.Time
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string]*memoryEntry),
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.now().After(e.expiresAt) {
		return "", models.ErrNotCached
	}
	return e.payload, nil
}

func (m *MemoryStore) Set(_ context.Context, key, payload string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = &memoryEntry{key: key, payload: payload, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return ok && !m.now().After(e.expiresAt), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	m.order = nil
	return nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *MemoryStore) Cleanup(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	kept := m.order[:0]
	for _, key := range m.order {
		e, ok := m.entries[key]
		if !ok {
			continue
		}
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	m.order = kept

	if len(m.entries) >= m.maxEntries {
		drop := len(m.entries) / 5
		if drop < 1 {
			drop = 1
		}
		for i := 0; i < drop && len(m.order) > 0; i++ {
			key := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, key)
		}
	}
	return nil
}
