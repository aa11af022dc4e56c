package domain

// MachineDiff represents the changes between two snapshots of a machine.
// It is designed to be serialized to JSON for partial updates on the client.
type MachineDiff struct {
	// MachineID is always present to identify the target.
	MachineID string `json:"machine_id"`

	Tape         *string     `json:"tape,omitempty"`
	Head         *int        `json:"headPosition,omitempty"`
	CurrentState *string     `json:"currentState,omitempty"`
	Status       *Status     `json:"status,omitempty"`
	Steps        *uint64     `json:"steps,omitempty"`
	LastHalt     *HaltReason `json:"lastHalt,omitempty"`

	// Deleted is set when the machine was removed.
	Deleted bool `json:"deleted,omitempty"`
}

// Diff calculates the difference between oldMachine and newMachine.
// If oldMachine is nil, it returns a diff representing the entire newMachine (initial load).
// It returns nil when nothing changed.
func Diff(oldMachine, newMachine *Machine) *MachineDiff {
	if newMachine == nil {
		return nil
	}

	diff := &MachineDiff{MachineID: newMachine.ID}
	changed := false

	if oldMachine == nil || oldMachine.Tape != newMachine.Tape {
		diff.Tape = ptr(newMachine.Tape)
		changed = true
	}
	if oldMachine == nil || oldMachine.Head != newMachine.Head {
		diff.Head = ptr(newMachine.Head)
		changed = true
	}
	if oldMachine == nil || oldMachine.CurrentState != newMachine.CurrentState {
		diff.CurrentState = ptr(newMachine.CurrentState)
		changed = true
	}
	if oldMachine == nil || oldMachine.Status != newMachine.Status {
		diff.Status = ptr(newMachine.Status)
		changed = true
	}
	if oldMachine == nil || oldMachine.Steps != newMachine.Steps {
		diff.Steps = ptr(newMachine.Steps)
		changed = true
	}
	if oldMachine == nil || oldMachine.LastHalt != newMachine.LastHalt {
		diff.LastHalt = ptr(newMachine.LastHalt)
		changed = true
	}

	if !changed {
		return nil
	}
	return diff
}

func ptr[T any](v T) *T {
	return &v
}
