package memory

import (
	"context"
	"sync"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Store implements ports.MachineStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Machine
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Machine),
	}
}

// Save keeps a deep copy of the machine so later caller mutations do not leak in.
func (s *Store) Save(ctx context.Context, m *domain.Machine) error {
	copied := m.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[m.ID] = copied
	return nil
}

// Load retrieves a copy of the machine.
func (s *Store) Load(ctx context.Context, id string) (*domain.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[id]
	if !ok {
		return nil, domain.ErrMachineNotFound
	}
	return m.Snapshot(), nil
}

// Delete removes the machine.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return domain.ErrMachineNotFound
	}
	delete(s.data, id)
	return nil
}

// List returns the stored machine IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
