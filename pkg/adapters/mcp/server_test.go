package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/pkg/adapters/memory"
	"github.com/mathieusouflis/turing/pkg/domain"
)

func newTestServer() *Server {
	return NewServer(turing.New(memory.NewStore()))
}

func TestServer_MachineTools(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	created, err := s.handleCreate(ctx, req, map[string]interface{}{"template": domain.TemplateUnarySuccessor})
	require.NoError(t, err)
	id := created.Machine.ID

	step, err := s.handleStep(ctx, req, map[string]interface{}{"id": id})
	require.NoError(t, err)
	assert.True(t, step.Executed)

	run, err := s.handleRun(ctx, req, map[string]interface{}{"id": id, "max_steps": float64(100)})
	require.NoError(t, err)
	assert.Equal(t, domain.ReachedFinalState, run.HaltReason)
	assert.Equal(t, "1111111", run.Machine.Tape)

	reset, err := s.handleReset(ctx, req, map[string]interface{}{"id": id, "content": "11", "head_position": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "11", reset.Machine.Tape)
	assert.Equal(t, 1, reset.Machine.Head)

	got, err := s.handleGet(ctx, req, map[string]interface{}{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "A", got.Machine.CurrentState)

	del, err := s.handleDelete(ctx, req, map[string]interface{}{"id": id})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = s.handleGet(ctx, req, map[string]interface{}{"id": id})
	assert.ErrorIs(t, err, domain.ErrMachineNotFound)
}

func TestServer_CreateFromDefinition(t *testing.T) {
	s := newTestServer()

	def := `
initial_state: q0
final_states: [done]
rules:
  - {from: q0, read: 1, write: 0, move: R, to: q0}
  - {from: q0, read: _, write: _, move: S, to: done}
`
	res, err := s.handleCreate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"definition":    def,
		"tape":          "111",
		"head_position": float64(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "q0", res.Machine.CurrentState)
	assert.Equal(t, "111", res.Machine.Tape)
	assert.Len(t, res.Machine.Definition.Rules, 2)
}

func TestServer_ArgumentErrors(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleStep(ctx, req, map[string]interface{}{})
	assert.ErrorIs(t, err, errMissingID)

	_, err = s.handleRun(ctx, req, map[string]interface{}{"id": "x", "max_steps": -3.0})
	assert.Error(t, err)

	_, err = s.handleCreate(ctx, req, map[string]interface{}{"head_position": "two"})
	assert.Error(t, err)

	_, err = s.handleCreate(ctx, req, map[string]interface{}{"definition": "rules: [{from: A, read: xy}]"})
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestServer_OversizedHeadRejected(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleCreate(ctx, req, map[string]interface{}{"head_position": float64(50_000_000)})
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)

	created, err := s.handleCreate(ctx, req, map[string]interface{}{"tape": "1"})
	require.NoError(t, err)

	_, err = s.handleReset(ctx, req, map[string]interface{}{"id": created.Machine.ID, "head_position": float64(50_000_000)})
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestServer_TemplatesAndResource(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	tpl, err := s.handleTemplates(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TemplateUnaryCounter, domain.TemplateUnarySuccessor}, tpl.Templates)

	_, err = s.handleCreate(ctx, mcp.CallToolRequest{}, map[string]interface{}{"name": "one"})
	require.NoError(t, err)

	msg := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"turing://machines"}}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `\"name\":\"one\"`)
}
