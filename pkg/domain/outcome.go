package domain

// StepOutcome is the result of a single step.
type StepOutcome string

const (
	// Executed means a rule matched and was applied.
	Executed StepOutcome = "executed"
	// HaltedAlreadyFinal means the machine was in a final state; nothing changed.
	HaltedAlreadyFinal StepOutcome = "halted_already_final"
	// HaltedNoRule means no rule matches (state, symbol); nothing changed.
	HaltedNoRule StepOutcome = "halted_no_rule"
)

// Halted reports whether the outcome stopped the machine.
func (o StepOutcome) Halted() bool {
	return o != Executed
}

// HaltReason maps a halting outcome to its reason. Executed has no reason.
func (o StepOutcome) HaltReason() HaltReason {
	switch o {
	case HaltedAlreadyFinal:
		return ReachedFinalState
	case HaltedNoRule:
		return NoMatchingRule
	}
	return ""
}

// HaltReason explains why a bounded run stopped.
type HaltReason string

const (
	ReachedFinalState HaltReason = "reached_final_state"
	NoMatchingRule    HaltReason = "no_matching_rule"
	MaxStepsReached   HaltReason = "max_steps_reached"
)

// RunResult is the outcome of a bounded run.
type RunResult struct {
	StepsExecuted uint64     `json:"stepsExecuted"`
	HaltReason    HaltReason `json:"haltReason"`
}

// Halted reports whether the run stopped on its own rather than on the step budget.
func (r RunResult) Halted() bool {
	return r.HaltReason == ReachedFinalState || r.HaltReason == NoMatchingRule
}
