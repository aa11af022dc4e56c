package turing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mathieusouflis/turing/internal/runtime"
	"github.com/mathieusouflis/turing/pkg/domain"
)

// TapeRenderer turns a tape and the control state into one line of output.
// This allows colored terminal rendering without coupling the core package to it.
type TapeRenderer func(tape *domain.Tape, state string) string

// PlainTape renders the tape content with the head cell in brackets.
func PlainTape(tape *domain.Tape, state string) string {
	cells := tape.Cells()
	head := tape.Head()
	for len(cells) <= head {
		cells = append(cells, domain.Blank)
	}

	out := make([]domain.Symbol, 0, len(cells)+2)
	for i, c := range cells {
		if i == head {
			out = append(out, '[', c, ']')
			continue
		}
		out = append(out, c)
	}
	return fmt.Sprintf("%s  (%s)", string(out), state)
}

// Runner executes a definition locally, without a store, printing every step.
type Runner struct {
	Output   io.Writer
	Renderer TapeRenderer
	MaxSteps uint64
	// Quiet prints only the final configuration.
	Quiet bool
}

// NewRunner creates a Runner writing plain text to w.
func NewRunner(w io.Writer) *Runner {
	return &Runner{
		Output:   w,
		Renderer: PlainTape,
		MaxSteps: DefaultMaxSteps,
	}
}

// Run simulates def from its initial configuration until it halts or the
// budget is spent, and returns the final machine snapshot.
func (r *Runner) Run(ctx context.Context, def domain.Definition) (*domain.Machine, domain.RunResult, error) {
	if r.Output == nil {
		return nil, domain.RunResult{}, fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	render := r.Renderer
	if render == nil {
		render = PlainTape
	}

	m := domain.NewMachine("local", "", def, time.Now())
	var eng *runtime.Engine
	var step uint64

	hooks := domain.LifecycleHooks{}
	if !r.Quiet {
		hooks.OnStep = func(_ context.Context, e *domain.StepEvent) {
			step++
			fmt.Fprintf(r.Output, "%5d  %-22s %s\n", step, e.Rule.String(), render(eng.Tape(), eng.State()))
		}
		fmt.Fprintf(r.Output, "%5d  %-22s %s\n", 0, "", render(domain.NewTape(def.InitialTape, def.InitialHead), def.InitialState))
	}
	eng = runtime.Restore(m, runtime.WithHooks(hooks))

	res, err := eng.RunContext(ctx, r.MaxSteps)
	eng.Apply(m)
	m.Record(res.StepsExecuted, res.HaltReason, time.Now())
	if err != nil {
		return m, res, err
	}

	if r.Quiet {
		fmt.Fprintln(r.Output, render(eng.Tape(), eng.State()))
	}
	fmt.Fprintf(r.Output, "halted: %s after %d steps\n", res.HaltReason, res.StepsExecuted)
	return m, res, nil
}
