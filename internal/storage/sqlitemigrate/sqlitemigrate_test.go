package sqlitemigrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestApply_RecordsAndCreates(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"002_index.sql":  {Data: []byte("CREATE INDEX items_name ON items(name);")},
		"001_create.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY, name TEXT);\n-- +migrate Down\nDROP TABLE items;")},
		"README.md":      {Data: []byte("ignored")},
	}

	require.NoError(t, Apply(context.Background(), db, fsys, ""))

	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM "+Table))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='items'"))
}

func TestApply_Idempotent(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE items(id TEXT PRIMARY KEY);")},
	}

	require.NoError(t, Apply(context.Background(), db, fsys, ""))
	require.NoError(t, Apply(context.Background(), db, fsys, ""))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM "+Table))
}

func TestApply_FailedMigrationStaysUnrecorded(t *testing.T) {
	db := openDB(t)
	bad := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREAT TABLE things(id INT);")},
	}
	require.Error(t, Apply(context.Background(), db, bad, ""))
	assert.Equal(t, 0, count(t, db, "SELECT COUNT(*) FROM "+Table))

	good := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE things(id INTEGER PRIMARY KEY);")},
	}
	require.NoError(t, Apply(context.Background(), db, good, ""))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM "+Table))
}

func TestApply_Subdirectory(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"machines/001_machines.sql": {Data: []byte("CREATE TABLE rows(id TEXT);")},
	}
	require.NoError(t, Apply(context.Background(), db, fsys, "machines"))

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM "+Table).Scan(&name))
	assert.Equal(t, "machines/001_machines.sql", name)
}

func TestUp(t *testing.T) {
	assert.Equal(t, "SELECT 1;", Up("SELECT 1;"))
	assert.Equal(t, "\nA;\n", Up("-- +migrate Up\nA;\n-- +migrate Down\nB;"))
	assert.Equal(t, "\nA;", Up("header\n-- +migrate Up\nA;"))
}
