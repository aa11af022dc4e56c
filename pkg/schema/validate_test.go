package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/pkg/domain"
)

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(domain.DefaultDefinition()))
	assert.NoError(t, Validate(domain.UnarySuccessorDefinition()))
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	def := domain.Definition{
		FinalStates: []string{""},
		Rules: []domain.Rule{
			{From: "A", Read: '_', Write: '1', Move: "up", To: ""},
		},
		InitialHead: -1,
	}

	err := Validate(def)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)

	var aggr *AggregateError
	require.True(t, errors.As(err, &aggr))

	keys := make([]string, 0, len(aggr.Errors))
	for _, e := range ValidationErrors(err) {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve))
		keys = append(keys, ve.Key)
	}
	assert.ElementsMatch(t, []string{
		"initial_state",
		"final_states[0]",
		"rules[0].to",
		"rules[0].move",
		"initial_head",
	}, keys)
}

func TestValidate_RequiresRulesAndFinals(t *testing.T) {
	err := Validate(domain.Definition{InitialState: "A"})
	require.Error(t, err)
	assert.Len(t, ValidationErrors(err), 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidate_MissingSymbols(t *testing.T) {
	def := domain.UnarySuccessorDefinition()
	def.Rules[1].Read = 0

	err := Validate(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"rules[1].read"`)
}

func TestValidateWithLimits(t *testing.T) {
	limits := Limits{MaxHead: 10, MaxTape: 5}

	def := domain.UnarySuccessorDefinition()
	def.InitialTape = "_____"
	def.InitialHead = 10
	assert.NoError(t, ValidateWithLimits(def, limits), "bounds are inclusive")

	def.InitialHead = 11
	def.InitialTape = "______"
	err := ValidateWithLimits(def, limits)
	require.ErrorIs(t, err, domain.ErrInvalidDefinition)
	issues := ValidationErrors(err)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Error(), `"initial_head": must not exceed 10`)
	assert.Contains(t, issues[1].Error(), `"initial_tape": must not exceed 5 symbols`)

	assert.NoError(t, ValidateWithLimits(def, Limits{}), "zero limits disable the bounds")
}

func TestValidate_DefaultHeadBound(t *testing.T) {
	def := domain.UnarySuccessorDefinition()
	def.InitialHead = 50_000_000
	assert.ErrorIs(t, Validate(def), domain.ErrInvalidDefinition)
}

func TestValidateTape(t *testing.T) {
	limits := Limits{MaxHead: 100, MaxTape: 100}

	assert.NoError(t, ValidateTape("111", 3, limits))
	assert.ErrorIs(t, ValidateTape("111", -1, limits), domain.ErrInvalidDefinition)
	assert.ErrorIs(t, ValidateTape("111", 101, limits), domain.ErrInvalidDefinition)

	err := ValidateTape(string(make([]byte, 101)), 0, limits)
	require.ErrorIs(t, err, domain.ErrInvalidDefinition)
	assert.Len(t, ValidationErrors(err), 1)
}

func TestWarnings_ReportsShadowedRules(t *testing.T) {
	def := domain.UnarySuccessorDefinition()
	def.Rules = append(def.Rules, domain.Rule{From: "A", Read: '_', Write: '0', Move: domain.Left, To: "A"})

	warnings := Warnings(def)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "A,_ -> 0,L,A")

	assert.Empty(t, Warnings(domain.DefaultDefinition()))
}

func TestValidationErrors_NotAggregate(t *testing.T) {
	assert.Nil(t, ValidationErrors(errors.New("plain")))
}
