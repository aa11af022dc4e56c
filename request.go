package turing

import "github.com/mathieusouflis/turing/pkg/domain"

// CreateRequest describes a new machine.
//
// The definition comes from Template when set, otherwise from Definition,
// otherwise the unary counter is used. Missing parts of the definition are
// filled with the defaults: initial state "A", final states {"HALT"}, the
// unary counter rules and the tape "______1". Tape and Head override the
// definition's initial tape and head.
type CreateRequest struct {
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name,omitempty"`
	Template   string             `json:"template,omitempty"`
	Definition *domain.Definition `json:"definition,omitempty"`
	Tape       *string            `json:"tape,omitempty"`
	Head       *int               `json:"headPosition,omitempty"`
}

// ResetRequest overrides the tape a machine is reset to.
type ResetRequest struct {
	Content *string `json:"content,omitempty"`
	Head    *int    `json:"headPosition,omitempty"`
}

// StepResult is the outcome of Service.Step.
type StepResult struct {
	Outcome  domain.StepOutcome `json:"outcome"`
	Executed bool               `json:"executed"`
	Halted   bool               `json:"halted"`
	Reason   domain.HaltReason  `json:"haltReason,omitempty"`

	Tape  string `json:"tape"`
	Head  int    `json:"headPosition"`
	State string `json:"currentState"`

	Machine *domain.Machine `json:"machine"`
}

func newStepResult(m *domain.Machine, outcome domain.StepOutcome) *StepResult {
	return &StepResult{
		Outcome:  outcome,
		Executed: outcome == domain.Executed,
		Halted:   outcome.Halted(),
		Reason:   outcome.HaltReason(),
		Tape:     m.Tape,
		Head:     m.Head,
		State:    m.CurrentState,
		Machine:  m,
	}
}

// RunResult is the outcome of Service.Run.
type RunResult struct {
	domain.RunResult
	// MaxSteps is the budget the run was granted after defaults and clamping.
	MaxSteps uint64          `json:"maxSteps"`
	Machine  *domain.Machine `json:"machine"`
}
