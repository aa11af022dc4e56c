package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing/pkg/adapters/file"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
)

var _ ports.MachineStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunMachineStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewMachine("m-1", "", domain.DefaultDefinition(), time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	err := store.Save(ctx, &domain.Machine{ID: "../escape"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	err = store.Save(ctx, &domain.Machine{ID: "a/b"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	err = store.Delete(ctx, ".hidden")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestFileStore_TmpPrefixedIDsAreListed(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewMachine("tmp-1", "", domain.DefaultDefinition(), time.Now())))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-1"}, ids)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMachineNotFound)
}
