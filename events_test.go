package turing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/domain"
)

func TestStreams_RoutesByMachine(t *testing.T) {
	s := NewStreams(logging.NewNop())

	one, cancelOne := s.Subscribe("m-1")
	defer cancelOne()
	all, cancelAll := s.Subscribe("")
	defer cancelAll()

	s.Publish(&domain.MachineDiff{MachineID: "m-2"})
	s.Publish(&domain.MachineDiff{MachineID: "m-1"})

	assert.Equal(t, "m-1", (<-one).MachineID)
	assert.Equal(t, "m-2", (<-all).MachineID)
	assert.Equal(t, "m-1", (<-all).MachineID)
	assert.Empty(t, one)
}

func TestStreams_DropsWhenFull(t *testing.T) {
	s := NewStreams(logging.NewNop())
	ch, cancel := s.Subscribe("m-1")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		s.Publish(&domain.MachineDiff{MachineID: "m-1"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestStreams_CancelCleansUp(t *testing.T) {
	s := NewStreams(logging.NewNop())
	ch, cancel := s.Subscribe("m-1")
	assert.Equal(t, 1, s.Count("m-1"))

	cancel()
	cancel()
	assert.Equal(t, 0, s.Count("m-1"))

	_, open := <-ch
	assert.False(t, open)

	s.Publish(nil)
	s.Publish(&domain.MachineDiff{MachineID: "m-1"})
}
