package turing

import (
	"log/slog"
	"sync"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// subscriberBuffer is how many diffs a slow subscriber may lag behind before
// further diffs are dropped for it.
const subscriberBuffer = 16

// Streams fans machine diffs out to subscribers, keyed by machine ID.
// The empty key receives the diffs of every machine.
type Streams struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *domain.MachineDiff]struct{}
	logger      *slog.Logger
}

// NewStreams creates an empty stream registry.
func NewStreams(logger *slog.Logger) *Streams {
	return &Streams{
		subscribers: make(map[string]map[chan *domain.MachineDiff]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for machineID ("" for all machines).
// The returned cancel function unregisters it and closes the channel.
func (s *Streams) Subscribe(machineID string) (<-chan *domain.MachineDiff, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *domain.MachineDiff, subscriberBuffer)
	if _, ok := s.subscribers[machineID]; !ok {
		s.subscribers[machineID] = make(map[chan *domain.MachineDiff]struct{})
	}
	s.subscribers[machineID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := s.subscribers[machineID]
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(s.subscribers, machineID)
			}
		})
	}
}

// Publish delivers diff to the subscribers of its machine and to the global ones.
// It never blocks: a subscriber whose buffer is full misses the diff.
func (s *Streams) Publish(diff *domain.MachineDiff) {
	if diff == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range []string{diff.MachineID, ""} {
		for ch := range s.subscribers[key] {
			select {
			case ch <- diff:
			default:
				s.logger.Warn("Subscriber buffer full, dropping diff", "machine_id", diff.MachineID)
			}
		}
	}
}

// Count returns the number of subscribers for machineID.
func (s *Streams) Count(machineID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[machineID])
}
