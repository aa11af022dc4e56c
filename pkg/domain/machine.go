package domain

import "time"

// Status is the persisted execution status of a machine.
type Status string

const (
	StatusRunning  Status = "running"  // A rule may still apply
	StatusAccepted Status = "accepted" // Current state is final
	StatusStuck    Status = "stuck"    // Last step found no matching rule
)

// Machine is the canonical snapshot of a machine.
// Every adapter (stores, HTTP, MCP, CLI) translates to and from this struct;
// the engine never sees loosely-typed records.
type Machine struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	// Tape, Head and CurrentState are the live configuration.
	Tape         string `json:"tape"`
	Head         int    `json:"headPosition"`
	CurrentState string `json:"currentState"`

	Definition Definition `json:"definition"`

	Status   Status     `json:"status"`
	Steps    uint64     `json:"steps"`
	LastHalt HaltReason `json:"lastHalt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMachine creates a machine in its initial configuration.
func NewMachine(id, name string, def Definition, now time.Time) *Machine {
	tape := NewTape(def.InitialTape, def.InitialHead)
	m := &Machine{
		ID:           id,
		Name:         name,
		Tape:         tape.Content(),
		Head:         tape.Head(),
		CurrentState: def.InitialState,
		Definition:   def.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Status = m.deriveStatus()
	return m
}

// Halted reports whether the machine is in a final state.
func (m *Machine) Halted() bool {
	return m.Definition.IsFinal(m.CurrentState)
}

// Record updates the bookkeeping fields after an engine operation.
// Pass an empty reason when the last operation did not halt.
func (m *Machine) Record(steps uint64, reason HaltReason, now time.Time) {
	m.Steps += steps
	m.LastHalt = reason
	m.Status = m.deriveStatus()
	m.UpdatedAt = now
}

func (m *Machine) deriveStatus() Status {
	switch {
	case m.Halted():
		return StatusAccepted
	case m.LastHalt == NoMatchingRule:
		return StatusStuck
	}
	return StatusRunning
}

// Snapshot returns a deep copy of the machine.
func (m *Machine) Snapshot() *Machine {
	if m == nil {
		return nil
	}
	out := *m
	out.Definition = m.Definition.Clone()
	return &out
}
