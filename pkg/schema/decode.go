package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// record is the canonical shape every loosely-typed input is normalized into.
type record struct {
	InitialState string        `mapstructure:"initial_state"`
	FinalStates  []string      `mapstructure:"final_states"`
	Rules        []domain.Rule `mapstructure:"rules"`
	InitialTape  string        `mapstructure:"initial_tape"`
	InitialHead  int           `mapstructure:"initial_head"`
}

// Accepted spellings, keyed by their canonical form (see canon).
var (
	definitionKeys = map[string]string{
		"initialstate":        "initial_state",
		"startstate":          "initial_state",
		"finalstates":         "final_states",
		"finalstate":          "final_states",
		"acceptstates":        "final_states",
		"initialtape":         "initial_tape",
		"tape":                "tape",
		"initialhead":         "initial_head",
		"initialheadposition": "initial_head",
		"headposition":        "head",
		"head":                "head",
		"rules":               "rules",
		"transitions":         "transitions",
		"definition":          "definition",
	}

	ruleKeys = map[string]string{
		"from":          "from",
		"fromstate":     "from",
		"state":         "from",
		"currentstate":  "from",
		"read":          "read",
		"readsymbol":    "read",
		"input":         "read",
		"write":         "write",
		"writesymbol":   "write",
		"output":        "write",
		"move":          "move",
		"movedirection": "move",
		"direction":     "move",
		"to":            "to",
		"tostate":       "to",
		"nextstate":     "to",
	}
)

var (
	symbolType    = reflect.TypeOf(domain.Symbol(0))
	directionType = reflect.TypeOf(domain.Direction(""))
)

// canon folds case and drops separators so "head_position", "headPosition"
// and "Head-Position" compare equal.
func canon(key string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(key))
}

func normalize(in map[string]any, aliases map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if name, ok := aliases[canon(k)]; ok {
			if _, taken := out[name]; !taken {
				out[name] = v
			}
		}
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// DecodeRecord converts a loosely-typed record into a Definition.
//
// Keys are matched ignoring case and separators, and the legacy spellings are
// accepted: rules may use currentState|state|from, readSymbol|input|read,
// writeSymbol|output|write, moveDirection|direction|move and nextState|to.
// A single finalState string becomes a one-element set, and "tape" or
// "headPosition" seed the initial tape when no explicit initial values exist.
// Entries of "transitions" are appended after "rules". A nested "definition"
// object takes precedence over top-level keys.
//
// DecodeRecord does not validate the result; call Validate.
func DecodeRecord(rec map[string]any) (domain.Definition, error) {
	top := normalize(rec, definitionKeys)
	src := top
	if nested, ok := asMap(top["definition"]); ok {
		src = normalize(nested, definitionKeys)
		for k, v := range top {
			if _, ok := src[k]; !ok {
				src[k] = v
			}
		}
	}

	flat := map[string]any{}
	for _, k := range []string{"initial_state", "final_states", "initial_tape", "initial_head"} {
		if v, ok := src[k]; ok {
			flat[k] = v
		}
	}
	if _, ok := flat["initial_tape"]; !ok {
		if v, ok := src["tape"]; ok {
			flat["initial_tape"] = v
		}
	}
	if _, ok := flat["initial_head"]; !ok {
		if v, ok := src["head"]; ok {
			flat["initial_head"] = v
		}
	}

	var rules []any
	for _, k := range []string{"rules", "transitions"} {
		raw, ok := src[k]
		if !ok || raw == nil {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return domain.Definition{}, fmt.Errorf("%w: field %q: expected a list, got %T", domain.ErrInvalidDefinition, k, raw)
		}
		for i, item := range list {
			m, ok := asMap(item)
			if !ok {
				return domain.Definition{}, fmt.Errorf("%w: field \"%s[%d]\": expected an object, got %T", domain.ErrInvalidDefinition, k, i, item)
			}
			rules = append(rules, normalize(m, ruleKeys))
		}
	}
	if rules != nil {
		flat["rules"] = rules
	}

	var out record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       symbolHook,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return domain.Definition{}, err
	}
	if err := dec.Decode(flat); err != nil {
		return domain.Definition{}, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}

	return domain.Definition{
		InitialState: out.InitialState,
		FinalStates:  out.FinalStates,
		Rules:        out.Rules,
		InitialTape:  out.InitialTape,
		InitialHead:  out.InitialHead,
	}, nil
}

// symbolHook parses symbols and directions from whatever scalar the source
// format produced: YAML reads `read: 1` as an int, JSON with UseNumber as json.Number.
func symbolHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case symbolType:
		if s, ok := data.(domain.Symbol); ok {
			return s, nil
		}
		return domain.ParseSymbol(fmt.Sprint(data))
	case directionType:
		if d, ok := data.(domain.Direction); ok {
			return d, nil
		}
		return domain.ParseDirection(fmt.Sprint(data))
	}
	return data, nil
}
