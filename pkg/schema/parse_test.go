package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/pkg/domain"
)

const successorYAML = `
name: successor
description: |
  Fills the blanks, then halts.
initial_state: A
final_states: [HALT]
initial_tape: "______1"
rules:
  - {from: A, read: _, write: 1, move: R, to: A}
  - {from: A, read: 1, write: 1, move: R, to: HALT}
`

func TestParseDefinition_YAML(t *testing.T) {
	def, err := ParseDefinition([]byte(successorYAML), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, domain.UnarySuccessorDefinition(), def)
}

func TestParseDefinition_JSON(t *testing.T) {
	data := `{
		"initialState": "A",
		"finalStates": ["HALT"],
		"initialTape": "______1",
		"initialHead": 0,
		"rules": [
			{"from": "A", "read": "_", "write": "1", "move": "R", "to": "A"},
			{"from": "A", "read": "1", "write": "1", "move": "R", "to": "HALT"}
		]
	}`
	def, err := ParseDefinition([]byte(data), ".json")
	require.NoError(t, err)
	assert.Equal(t, domain.UnarySuccessorDefinition(), def)
}

func TestParseDefinition_Invalid(t *testing.T) {
	_, err := ParseDefinition([]byte("initial_state: A\n"), ".yml")
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)

	_, err = ParseDefinition([]byte("{"), ".json")
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)

	_, err = ParseDefinition([]byte(""), ".yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestParseTemplateFile(t *testing.T) {
	tmpl, err := ParseTemplateFile("catalog/other.yaml", []byte(successorYAML))
	require.NoError(t, err)
	assert.Equal(t, "successor", tmpl.Name)
	assert.Equal(t, "Fills the blanks, then halts.", tmpl.Description)

	unnamed, err := ParseTemplateFile("catalog/succ.json", []byte(`{"initialState":"A","finalState":"HALT","rules":[{"state":"A","input":"1","output":"1","direction":"stop","nextState":"HALT"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "succ", unnamed.Name)
}
