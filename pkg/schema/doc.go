// Package schema turns loosely-typed machine records into canonical definitions
// and validates them before they reach the engine.
//
// Records come from several places: YAML or JSON definition files, Loam template
// documents, HTTP bodies and rows written by older versions of the service. Their
// keys vary in case and spelling, so DecodeRecord normalizes them first:
//
//	record := map[string]any{
//	    "initialState": "A",
//	    "finalState":   "HALT",
//	    "tape":         "______1",
//	    "rules": []any{
//	        map[string]any{"state": "A", "input": "_", "output": "1", "direction": "right", "nextState": "A"},
//	    },
//	}
//
//	def, err := schema.DecodeRecord(record)
//	if err != nil {
//	    // errors.Is(err, domain.ErrInvalidDefinition)
//	}
//
// Validate reports every problem at once as an *AggregateError wrapped with
// domain.ErrInvalidDefinition.
package schema
