package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
)

// MockStore is a minimal map-backed MachineStore used to check the contract suite itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Machine
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Machine)}
}

func (m *MockStore) Save(_ context.Context, machine *domain.Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[machine.ID] = machine.Snapshot()
	return nil
}

func (m *MockStore) Load(_ context.Context, id string) (*domain.Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	machine, ok := m.data[id]
	if !ok {
		return nil, domain.ErrMachineNotFound
	}
	return machine.Snapshot(), nil
}

func (m *MockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return domain.ErrMachineNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *MockStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestMachineStore_Contract(t *testing.T) {
	ports.RunMachineStoreContract(t, NewMockStore())
}
