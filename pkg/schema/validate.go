package schema

import (
	"fmt"
	"unicode/utf8"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Default bounds on the configuration a caller may ask for. The tape pads
// eagerly up to the head, so an unbounded head is an unbounded allocation.
const (
	DefaultMaxHead = 1_000_000
	DefaultMaxTape = 1_000_000
)

// Limits bounds the initial head position and the initial tape length.
// A zero field disables that bound.
type Limits struct {
	MaxHead int
	MaxTape int
}

// DefaultLimits are the limits Validate applies.
var DefaultLimits = Limits{MaxHead: DefaultMaxHead, MaxTape: DefaultMaxTape}

// Validate checks that def can be executed, within DefaultLimits.
// All failures are collected and returned together, wrapped with domain.ErrInvalidDefinition.
func Validate(def domain.Definition) error {
	return ValidateWithLimits(def, DefaultLimits)
}

// ValidateTape checks a tape configuration supplied for a reset.
func ValidateTape(content string, head int, limits Limits) error {
	errs := tapeErrors("content", "head_position", content, head, limits)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, &AggregateError{Errors: errs})
	}
	return nil
}

func tapeErrors(tapeKey, headKey, content string, head int, limits Limits) []error {
	var errs []error
	if head < 0 {
		errs = append(errs, &ValidationError{Key: headKey, Reason: "must be non-negative", Value: head})
	}
	if limits.MaxHead > 0 && head > limits.MaxHead {
		errs = append(errs, &ValidationError{Key: headKey, Reason: fmt.Sprintf("must not exceed %d", limits.MaxHead), Value: head})
	}
	if n := utf8.RuneCountInString(content); limits.MaxTape > 0 && n > limits.MaxTape {
		errs = append(errs, &ValidationError{Key: tapeKey, Reason: fmt.Sprintf("must not exceed %d symbols", limits.MaxTape), Value: n})
	}
	return errs
}

// ValidateWithLimits is Validate with explicit bounds on the initial tape.
func ValidateWithLimits(def domain.Definition, limits Limits) error {
	var errs []error
	fail := func(key, reason string, value any) {
		errs = append(errs, &ValidationError{Key: key, Reason: reason, Value: value})
	}

	if def.InitialState == "" {
		fail("initial_state", "required", nil)
	}

	if len(def.FinalStates) == 0 {
		fail("final_states", "at least one final state is required", nil)
	}
	for i, s := range def.FinalStates {
		if s == "" {
			fail(fmt.Sprintf("final_states[%d]", i), "cannot be empty", nil)
		}
	}

	if len(def.Rules) == 0 {
		fail("rules", "at least one rule is required", nil)
	}
	for i, r := range def.Rules {
		key := fmt.Sprintf("rules[%d]", i)
		if r.From == "" {
			fail(key+".from", "required", nil)
		}
		if r.To == "" {
			fail(key+".to", "required", nil)
		}
		if r.Read == 0 {
			fail(key+".read", "a single symbol is required", nil)
		}
		if r.Write == 0 {
			fail(key+".write", "a single symbol is required", nil)
		}
		switch r.Move {
		case domain.Left, domain.Right, domain.Stay:
		default:
			fail(key+".move", "must be one of L, R, S", string(r.Move))
		}
	}

	errs = append(errs, tapeErrors("initial_tape", "initial_head", def.InitialTape, def.InitialHead, limits)...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, &AggregateError{Errors: errs})
	}
	return nil
}

// Warnings lists problems that do not prevent execution, such as rules
// shadowed by an earlier rule with the same (state, symbol).
func Warnings(def domain.Definition) []string {
	var out []string
	for _, r := range def.Duplicates() {
		out = append(out, fmt.Sprintf("rule %q is shadowed by an earlier rule for (%s, %s)", r.String(), r.From, r.Read))
	}
	return out
}
