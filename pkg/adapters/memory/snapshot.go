package memory

import (
	"context"
	"sync"

	"github.com/aretw0/grove/pkg/domain"
)

// SnapshotStore implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type SnapshotStore struct {
	data map[string][]domain.Collection
	mu   sync.RWMutex
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]domain.Collection),
	}
}

// Save stores a copy of tree under key.
func (s *SnapshotStore) Save(ctx context.Context, key string, tree []domain.Collection) error {
	copied := domain.CloneTree(tree)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load returns a copy of the tree stored under key.
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return domain.CloneTree(tree), nil
}

// Delete removes the snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
