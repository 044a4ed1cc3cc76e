package stores

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/data/db"
)

func writeGarbage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not sqlite "), 512), 0o644))
}

func TestIsCorruptionError(t *testing.T) {
	assert.False(t, IsCorruptionError(nil))
	assert.False(t, IsCorruptionError(errors.New("connection refused")))
	assert.True(t, IsCorruptionError(errors.New("open: file is not a database (26)")))
	assert.True(t, IsCorruptionError(errors.New("database disk image is malformed")))
}

func TestRecoverFromCorruption_MovesFilesAside(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)

	writeGarbage(t, dbPath)
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-shm", []byte("shm"), 0o644))

	require.NoError(t, RecoverFromCorruption(dir))

	for _, suffix := range []string{"", "-wal", "-shm"} {
		_, err := os.Stat(dbPath + suffix)
		assert.ErrorIs(t, err, os.ErrNotExist, "%s still present", db.FileName+suffix)

		backups, err := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"+suffix))
		require.NoError(t, err)
		assert.NotEmpty(t, backups, "no backup for %q", suffix)
	}
}

func TestRecoverFromCorruption_NothingToMove(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, RecoverFromCorruption(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenCache_ReplacesCorruptDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeGarbage(t, filepath.Join(dir, db.FileName))

	_, err := db.Open(dir)
	require.Error(t, err)
	require.True(t, IsCorruptionError(err), "unexpected error: %v", err)

	database, err := OpenCache(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := NewKVStore(database)
	require.NoError(t, store.Set(ctx, "k", "v"))
	var got string
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, "v", got)

	backups, err := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
}

func TestOpenCache_KeepsHealthyDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenCache(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, NewKVStore(first).Set(ctx, "k", 1))
	require.NoError(t, first.Close())

	second, err := OpenCache(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	has, err := NewKVStore(second).Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
}
