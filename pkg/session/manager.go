package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to machines, one operation per machine ID at a time.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.MachineStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new Manager over the given machine store.
func NewManager(store ports.MachineStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves a machine from the store.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Machine, error) {
	var machine *domain.Machine
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		machine, err = m.store.Load(ctx, id)
		return err
	})
	return machine, err
}

// Create persists a new machine. It fails with domain.ErrAlreadyExists if the ID is taken.
func (m *Manager) Create(ctx context.Context, machine *domain.Machine) error {
	return m.WithLock(ctx, machine.ID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, machine.ID)
		if err == nil {
			return fmt.Errorf("machine %s: %w", machine.ID, domain.ErrAlreadyExists)
		}
		if !errors.Is(err, domain.ErrMachineNotFound) {
			return fmt.Errorf("failed to check machine existence: %w", err)
		}
		return m.store.Save(ctx, machine)
	})
}

// Update loads a machine, applies fn and persists the result, all under the machine's lock.
// Nothing is saved when fn returns an error.
func (m *Manager) Update(ctx context.Context, id string, fn func(context.Context, *domain.Machine) error) (*domain.Machine, error) {
	var machine *domain.Machine
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		machine, err = m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, machine); err != nil {
			return err
		}
		return m.store.Save(ctx, machine)
	})
	if err != nil {
		return nil, err
	}
	return machine, nil
}

// Save persists the machine.
func (m *Manager) Save(ctx context.Context, machine *domain.Machine) error {
	return m.WithLock(ctx, machine.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, machine)
	})
}

// Delete removes the machine from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying machine store.
func (m *Manager) Store() ports.MachineStore {
	return m.store
}

// WithLock executes a function while holding the lock for the machine.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"machine_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
