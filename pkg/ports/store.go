package ports

import (
	"context"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// MachineStore persists machine snapshots between operations.
type MachineStore interface {
	// Save persists the snapshot under m.ID, replacing any previous version.
	Save(ctx context.Context, m *domain.Machine) error

	// Load retrieves a snapshot.
	// Returns domain.ErrMachineNotFound if the machine does not exist.
	Load(ctx context.Context, id string) (*domain.Machine, error)

	// Delete removes a snapshot.
	// Returns domain.ErrMachineNotFound if the machine does not exist.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored machines.
	List(ctx context.Context) ([]string, error)
}
