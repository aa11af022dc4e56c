package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "turing.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	var journal string
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var busy int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 5000, busy)

	var fk int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunMachineStoreContract(t, openTempStore(t))
}

func TestSQLiteStore_ListOrderedByCreation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, domain.NewMachine("b", "", domain.DefaultDefinition(), base.Add(time.Minute))))
	require.NoError(t, store.Save(ctx, domain.NewMachine("a", "", domain.DefaultDefinition(), base.Add(2*time.Minute))))
	require.NoError(t, store.Save(ctx, domain.NewMachine("c", "", domain.DefaultDefinition(), base)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "turing.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, domain.NewMachine("m-1", "kept", domain.UnarySuccessorDefinition(), time.Now())))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	m, err := second.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "kept", m.Name)
	assert.Len(t, m.Definition.Rules, 2)
}
