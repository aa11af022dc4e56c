package runtime_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/internal/runtime"
	"github.com/mathieusouflis/turing/pkg/domain"
)

func TestEngine_TraceGolden(t *testing.T) {
	var (
		trace strings.Builder
		n     int
	)

	def := domain.UnarySuccessorDefinition()
	tape := domain.NewTape(def.InitialTape, 0)
	engine := runtime.NewEngine(tape, def, runtime.WithMachineID("golden"),
		runtime.WithHooks(domain.LifecycleHooks{
			OnStep: func(_ context.Context, e *domain.StepEvent) {
				n++
				fmt.Fprintf(&trace, "%d %s head=%d tape=%s\n", n, e.Rule, e.Head, tape.Content())
			},
			OnHalt: func(_ context.Context, e *domain.HaltEvent) {
				fmt.Fprintf(&trace, "halt state=%s reason=%s steps=%d\n", e.State, e.Reason, e.Steps)
			},
		}),
	)

	_, err := engine.Run(1000)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "unary_successor_trace", []byte(trace.String()))
}
