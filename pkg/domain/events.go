package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStep EventType = "step"
	EventHalt EventType = "halt"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	MachineID string    `json:"machine_id"`
}

// StepEvent describes one executed transition.
type StepEvent struct {
	EventBase
	Rule Rule `json:"rule"`
	Head int  `json:"head"` // Head position after the move
}

// HaltEvent describes a machine stopping, either on its own or on the step budget.
type HaltEvent struct {
	EventBase
	State  string     `json:"state"`
	Reason HaltReason `json:"reason"`
	Steps  uint64     `json:"steps"` // Steps executed by the run that halted
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the engine goroutine and must not block.
type LifecycleHooks struct {
	OnStep func(context.Context, *StepEvent)
	OnHalt func(context.Context, *HaltEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStep: chain(h.OnStep, other.OnStep),
		OnHalt: chain(h.OnHalt, other.OnHalt),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
