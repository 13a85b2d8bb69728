package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		dsn         string
		expectedErr string
	}{
		{"empty_path", "", "empty database path"},
		{"whitespace_path", "   ", "empty database path"},
		{"tabs_path", "\t\t", "empty database path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.dsn)
			assert.Nil(t, store)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, IsMemoryDSN(":memory:"))
	assert.True(t, IsMemoryDSN(" :memory: "))
	assert.True(t, IsMemoryDSN("file::memory:?cache=shared"))
	assert.True(t, IsMemoryDSN("file:probe?mode=memory"))
	assert.False(t, IsMemoryDSN("/tmp/probe.db"))
	assert.False(t, IsMemoryDSN(""))
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()

	store, err := OpenMemory(ctx)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.IsMemory())
	assert.Equal(t, 1, store.DB().Stats().MaxOpenConnections)

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestOpenMemory_Isolated(t *testing.T) {
	ctx := context.Background()

	first, err := OpenMemory(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenMemory(ctx)
	require.NoError(t, err)
	defer second.Close()

	_, err = NewValueStore(first).Insert(ctx, "only-in-first")
	require.NoError(t, err)

	n, err := NewValueStore(second).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "deep", "test.db")

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)
	assert.False(t, store.IsMemory())
	assert.DirExists(t, filepath.Dir(dbPath))

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.NoError(t, store.Close())
}

func TestOpen_ExistingFileKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "existing.db")

	store1, err := Open(ctx, dbPath)
	require.NoError(t, err)
	id, err := NewValueStore(store1).Insert(ctx, "persisted")
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer store2.Close()

	v, ok, err := NewValueStore(store2).Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestMigration_Tables(t *testing.T) {
	ctx := context.Background()

	store, err := OpenMemory(ctx)
	require.NoError(t, err)
	defer store.Close()

	for _, table := range []string{"test", "probe_runs"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err)
		assert.Equal(t, table, name)
	}
}

func TestClose_Nil(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Close())
	assert.False(t, store.IsMemory())

	assert.NoError(t, (&Store{db: nil}).Close())
}

func TestDB_Getter(t *testing.T) {
	store, err := OpenMemory(context.Background())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &sql.DB{}, store.DB())
}
