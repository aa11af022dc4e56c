package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// RunMachineStoreContract runs a suite of tests to verify that a MachineStore implementation
// adheres to the defined interface contract.
func RunMachineStoreContract(t *testing.T, store MachineStore) {
	ctx := context.Background()
	id := "contract-test-machine-" + time.Now().Format("20060102150405")
	now := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		m := domain.NewMachine(id, "contract", domain.UnarySuccessorDefinition(), now)
		m.Tape = "1111111"
		m.Head = 7
		m.CurrentState = "HALT"
		m.Record(7, domain.ReachedFinalState, now)

		err := store.Save(ctx, m)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "1111111", loaded.Tape, "tape must round-trip without padding")
		assert.Equal(t, 7, loaded.Head)
		assert.Equal(t, "HALT", loaded.CurrentState)
		assert.Equal(t, domain.StatusAccepted, loaded.Status)
		assert.Equal(t, uint64(7), loaded.Steps)
		assert.Equal(t, m.Definition, loaded.Definition)
		assert.True(t, now.Equal(loaded.CreatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		m := domain.NewMachine(id, "contract", domain.UnarySuccessorDefinition(), now)
		require.NoError(t, store.Save(ctx, m))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTape, loaded.Tape)
		assert.Equal(t, "A", loaded.CurrentState)
	})

	t.Run("Load Returns a Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Tape = "mutated"
		loaded.Definition.Rules[0].To = "mutated"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Tape)
		assert.NotEqual(t, "mutated", again.Definition.Rules[0].To)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewMachine(id, "", domain.DefaultDefinition(), now))
		require.NoError(t, err)

		err = store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound, "Load after Delete should return ErrMachineNotFound")

		err = store.Delete(ctx, id)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound, "Delete of a missing machine should return ErrMachineNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, domain.NewMachine(id1, "", domain.DefaultDefinition(), now)))
		require.NoError(t, store.Save(ctx, domain.NewMachine(id2, "", domain.DefaultDefinition(), now)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
