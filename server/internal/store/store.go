package store

import (
	"context"
	"sync"
)

// Task is one record in the collection. Title doubles as the lookup key for
// updates and deletes; IDs are never looked up.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Collection is the full ordered set of tasks. Insertion order is preserved.
type Collection []Task

// Clone returns a copy of c that shares no backing array with it.
// A nil Collection clones to an empty, non-nil one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Store loads and saves the whole task collection.
type Store interface {
	// Load returns the stored collection. Implementations return an empty,
	// non-nil collection when nothing has been stored yet.
	Load(ctx context.Context) (Collection, error)

	// Save replaces the stored collection with c.
	Save(ctx context.Context, c Collection) error
}

// MemoryStore is a Store that keeps the collection in process memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data Collection
}

// NewMemory creates a MemoryStore seeded with a copy of initial.
func NewMemory(initial ...Task) *MemoryStore {
	return &MemoryStore{data: Collection(initial).Clone()}
}

// Load returns a copy of the stored collection.
func (m *MemoryStore) Load(ctx context.Context) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone(), nil
}

// Save replaces the stored collection with a copy of c.
func (m *MemoryStore) Save(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = c.Clone()
	return nil
}
