package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// DefaultCapacity is the number of verdicts a MemoryStore keeps when none is given.
const DefaultCapacity = 256

// MemoryStore is a thread-safe, bounded in-memory history.
// Once full, the oldest verdict is overwritten.
type MemoryStore struct {
	mu    sync.RWMutex
	ring  []models.Verdict
	next  int
	count int
}

// NewMemoryStore creates a store holding at most capacity verdicts.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{ring: make([]models.Verdict, capacity)}
}

// Save stores a copy of v.
func (m *MemoryStore) Save(_ context.Context, v *models.Verdict) error {
	if v == nil {
		return errors.New("storage: nil verdict")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.next] = *v
	m.next = (m.next + 1) % len(m.ring)
	if m.count < len(m.ring) {
		m.count++
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, n int) ([]models.Verdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > m.count {
		n = m.count
	}

	out := make([]models.Verdict, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.ring)) % len(m.ring)
		out = append(out, m.ring[idx])
	}
	return out, nil
}

// Len returns the number of stored verdicts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}
