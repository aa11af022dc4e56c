package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "turing-test", "  ")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address: nothing is exported because no span is recorded.
	shutdown, err := otel.Setup(context.Background(), "turing-test", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
