package domain

import (
	"fmt"
	"strings"
)

// Direction is the head movement of a rule.
type Direction string

const (
	Left  Direction = "L"
	Right Direction = "R"
	Stay  Direction = "S"
)

// ParseDirection normalizes the spellings found in stored records and
// definition files into one of Left, Right or Stay.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "left":
		return Left, nil
	case "r", "right":
		return Right, nil
	case "s", "stay", "stop", "n", "none":
		return Stay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Rule is a single transition: (From, Read) -> (Write, Move, To).
type Rule struct {
	From  string    `json:"from" yaml:"from"`
	Read  Symbol    `json:"read" yaml:"read"`
	Write Symbol    `json:"write" yaml:"write"`
	Move  Direction `json:"move" yaml:"move"`
	To    string    `json:"to" yaml:"to"`
}

// String renders the rule as "A,_ -> 1,R,B".
func (r Rule) String() string {
	return fmt.Sprintf("%s,%s -> %s,%s,%s", r.From, r.Read, r.Write, r.Move, r.To)
}

// Definition is the immutable program of a machine.
type Definition struct {
	InitialState string   `json:"initialState" yaml:"initial_state"`
	FinalStates  []string `json:"finalStates" yaml:"final_states"`
	Rules        []Rule   `json:"rules" yaml:"rules"`

	// InitialTape and InitialHead are the configuration restored by a reset
	// when the caller does not provide one.
	InitialTape string `json:"initialTape" yaml:"initial_tape"`
	InitialHead int    `json:"initialHead" yaml:"initial_head"`
}

// IsFinal reports whether state is one of the final states.
func (d Definition) IsFinal(state string) bool {
	for _, f := range d.FinalStates {
		if f == state {
			return true
		}
	}
	return false
}

// Duplicates returns the rules shadowed by an earlier rule with the same (From, Read) pair.
// They are never matched: the first declared rule wins.
func (d Definition) Duplicates() []Rule {
	type key struct {
		state  string
		symbol Symbol
	}
	seen := make(map[key]struct{}, len(d.Rules))
	var dups []Rule
	for _, r := range d.Rules {
		k := key{r.From, r.Read}
		if _, ok := seen[k]; ok {
			dups = append(dups, r)
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// States returns every state label mentioned by the definition, in first-seen order.
func (d Definition) States() []string {
	seen := make(map[string]struct{})
	var states []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		states = append(states, s)
	}
	add(d.InitialState)
	for _, r := range d.Rules {
		add(r.From)
		add(r.To)
	}
	for _, f := range d.FinalStates {
		add(f)
	}
	return states
}

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	out := d
	out.FinalStates = append([]string(nil), d.FinalStates...)
	out.Rules = append([]Rule(nil), d.Rules...)
	return out
}
