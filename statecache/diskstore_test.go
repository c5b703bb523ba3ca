package statecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/logger"
)

func newTestDiskStore(t *testing.T) *DiskStore {
	t.Helper()

	d, err := NewDiskStore(t.TempDir(), logger.NewZapWrapper(zap.NewNop()))
	require.NoError(t, err)
	return d
}

func TestDiskStore_WriteReadRoundtrip(t *testing.T) {
	d := newTestDiskStore(t)

	value := map[string]interface{}{"id": "task1", "tokens": float64(128)}
	require.NoError(t, d.WriteAtomic("taskHistory", value))

	got, ok := d.ReadRecord("taskHistory")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestDiskStore_NoTempFilesAfterWrite(t *testing.T) {
	d := newTestDiskStore(t)

	require.NoError(t, d.WriteAtomic("key", []interface{}{"v"}))

	entries, err := os.ReadDir(d.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestDiskStore_CrashBeforeRenameLeavesOldRecord(t *testing.T) {
	d := newTestDiskStore(t)

	require.NoError(t, d.WriteAtomic("key", "old"))

	// A crash between temp-write and rename leaves a stray temp file; the
	// published record must be untouched.
	stray := filepath.Join(d.Dir(), "key.json.123.tmp")
	require.NoError(t, os.WriteFile(stray, []byte(`"new-but-unpub`), 0644))

	got, ok := d.ReadRecord("key")
	require.True(t, ok)
	assert.Equal(t, "old", got)
}

func TestDiskStore_MissingRecordIsAbsent(t *testing.T) {
	d := newTestDiskStore(t)

	_, ok := d.ReadRecord("nothing")
	assert.False(t, ok)
}

func TestDiskStore_CorruptRecordIsAbsent(t *testing.T) {
	d := newTestDiskStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(d.Dir(), "bad.json"), []byte("{truncated"), 0644))

	_, ok := d.ReadRecord("bad")
	assert.False(t, ok)
}

func TestDiskStore_DeleteRecord(t *testing.T) {
	d := newTestDiskStore(t)

	require.NoError(t, d.WriteAtomic("key", "v"))
	require.NoError(t, d.DeleteRecord("key"))

	_, ok := d.ReadRecord("key")
	assert.False(t, ok)

	// Deleting a missing record is not an error.
	assert.NoError(t, d.DeleteRecord("key"))
}
