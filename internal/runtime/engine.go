package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/domain"
)

// CheckInterval is how many steps RunContext executes between context checks.
const CheckInterval = 1024

type ruleKey struct {
	state  string
	symbol domain.Symbol
}

// Engine executes a single-tape deterministic Turing machine.
// It owns the control state and holds the tape exclusively for its lifetime.
// An Engine is not safe for concurrent use; callers serialize access per machine.
type Engine struct {
	tape    *domain.Tape
	def     domain.Definition
	current string

	finals map[string]struct{}
	index  map[ruleKey]domain.Rule

	machineID string
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMachineID tags emitted events with the machine identifier.
func WithMachineID(id string) EngineOption {
	return func(e *Engine) {
		e.machineID = id
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine in the definition's initial state operating on tape.
// Rules are indexed in declaration order; a later rule with the same
// (state, symbol) pair as an earlier one is ignored.
func NewEngine(tape *domain.Tape, def domain.Definition, opts ...EngineOption) *Engine {
	e := &Engine{
		tape:    tape,
		def:     def.Clone(),
		current: def.InitialState,
		finals:  make(map[string]struct{}, len(def.FinalStates)),
		index:   make(map[ruleKey]domain.Rule, len(def.Rules)),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, f := range def.FinalStates {
		e.finals[f] = struct{}{}
	}
	for _, r := range def.Rules {
		k := ruleKey{r.From, r.Read}
		if _, exists := e.index[k]; exists {
			continue
		}
		e.index[k] = r
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore rebuilds an engine from a persisted snapshot, resuming at its current state.
func Restore(m *domain.Machine, opts ...EngineOption) *Engine {
	tape := domain.RestoreTape(m.Tape, m.Head)
	e := NewEngine(tape, m.Definition, append([]EngineOption{WithMachineID(m.ID)}, opts...)...)
	e.current = m.CurrentState
	return e
}

// State returns the current control state.
func (e *Engine) State() string {
	return e.current
}

// Tape returns the tape the engine operates on.
func (e *Engine) Tape() *domain.Tape {
	return e.tape
}

// Definition returns a copy of the program.
func (e *Engine) Definition() domain.Definition {
	return e.def.Clone()
}

// IsHalted reports whether the current state is final.
func (e *Engine) IsHalted() bool {
	_, ok := e.finals[e.current]
	return ok
}

// Step executes at most one transition.
//
// A machine already in a final state, or with no rule for the symbol under the
// head, is left untouched and the corresponding halt outcome is returned.
// Otherwise the rule's symbol is written, the head moves and the state changes,
// even when the new state is final; halting is only checked at the start of a step.
func (e *Engine) Step() (domain.StepOutcome, error) {
	return e.step(context.Background())
}

func (e *Engine) step(ctx context.Context) (domain.StepOutcome, error) {
	if e.IsHalted() {
		return domain.HaltedAlreadyFinal, nil
	}

	symbol := e.tape.Read()
	rule, ok := e.index[ruleKey{e.current, symbol}]
	if !ok {
		return domain.HaltedNoRule, nil
	}

	if err := e.tape.Write(rule.Write); err != nil {
		return "", fmt.Errorf("apply %s: %w", rule, err)
	}
	e.tape.Move(rule.Move)
	e.current = rule.To

	if e.hooks.OnStep != nil {
		e.hooks.OnStep(ctx, &domain.StepEvent{
			EventBase: e.event(domain.EventStep),
			Rule:      rule,
			Head:      e.tape.Head(),
		})
	}
	return domain.Executed, nil
}

// Run executes steps until the machine halts or maxSteps transitions were executed.
// Exhausting the budget is reported as MaxStepsReached, not as an error, unless the
// machine sits in a final state at that point: a budget spent on the very step that
// enters a final state reports ReachedFinalState.
func (e *Engine) Run(maxSteps uint64) (domain.RunResult, error) {
	return e.RunContext(context.Background(), maxSteps)
}

// RunContext is Run with cooperative cancellation: ctx is checked every
// CheckInterval steps. On cancellation the partial result is returned with ctx.Err().
// When the budget runs out in a final state the reason is ReachedFinalState, not MaxStepsReached.
func (e *Engine) RunContext(ctx context.Context, maxSteps uint64) (domain.RunResult, error) {
	var res domain.RunResult

	for res.StepsExecuted < maxSteps {
		if res.StepsExecuted%CheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		outcome, err := e.step(ctx)
		if err != nil {
			return res, err
		}
		if outcome.Halted() {
			res.HaltReason = outcome.HaltReason()
			e.halted(ctx, res)
			return res, nil
		}
		res.StepsExecuted++
	}

	// Budget exhausted. A machine sitting in a final state reports that instead,
	// which also covers Run(0) on an accepted machine.
	res.HaltReason = domain.MaxStepsReached
	if e.IsHalted() {
		res.HaltReason = domain.ReachedFinalState
	}
	e.halted(ctx, res)
	return res, nil
}

// Reset restores the tape to content/head and the control state to the initial state.
// Rules, initial state and final states are unchanged.
func (e *Engine) Reset(content string, head int) {
	e.tape.Reset(content, head)
	e.current = e.def.InitialState
}

// Apply copies the live configuration (tape, head, state) into m.
func (e *Engine) Apply(m *domain.Machine) {
	m.Tape = e.tape.Content()
	m.Head = e.tape.Head()
	m.CurrentState = e.current
}

func (e *Engine) halted(ctx context.Context, res domain.RunResult) {
	e.logger.Debug("machine halted",
		"machine_id", e.machineID,
		"state", e.current,
		"reason", res.HaltReason,
		"steps", res.StepsExecuted,
	)
	if e.hooks.OnHalt != nil {
		e.hooks.OnHalt(ctx, &domain.HaltEvent{
			EventBase: e.event(domain.EventHalt),
			State:     e.current,
			Reason:    res.HaltReason,
			Steps:     res.StepsExecuted,
		})
	}
}

func (e *Engine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		MachineID: e.machineID,
	}
}
