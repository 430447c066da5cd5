package storageengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujinfu/dfs/pkg/errtypes"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewRejectsDoubleOwnership(t *testing.T) {
	dir := t.TempDir()
	e1, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	defer e1.Close()

	_, err = New(dir, zerolog.Nop())
	assert.Error(t, err)
}

func TestCreateWriteReadSize(t *testing.T) {
	e := newEngine(t)

	ok := e.Create("/a/b.txt", false)
	assert.True(t, ok)

	require.NoError(t, e.Write("/a/b.txt", 0, []byte("hello")))

	size, err := e.Size("/a/b.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	data, err := e.Read("/a/b.txt", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReadOutOfBounds(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Write("/f", 0, []byte("abc")))

	_, err := e.Read("/f", 0, 10)
	require.Error(t, err)
	_, ok := err.(errtypes.IsIndexOutOfBounds)
	assert.True(t, ok)
}

func TestSizeNotFound(t *testing.T) {
	e := newEngine(t)
	_, err := e.Size("/missing")
	assert.Error(t, err)
}

func TestCreateMakesAncestorDirectories(t *testing.T) {
	e := newEngine(t)
	ok := e.Create("/a/b/c.txt", false)
	assert.True(t, ok)

	info, err := os.Stat(filepath.Join(e.Root(), "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateExistingFails(t *testing.T) {
	e := newEngine(t)
	assert.True(t, e.Create("/a", false))
	assert.False(t, e.Create("/a", false))
}

func TestDeleteRefusesRoot(t *testing.T) {
	e := newEngine(t)
	assert.False(t, e.Delete("/"))
}

func TestDeleteRemovesFile(t *testing.T) {
	e := newEngine(t)
	require.True(t, e.Create("/a", false))
	assert.True(t, e.Delete("/a"))

	_, err := e.Size("/a")
	assert.Error(t, err)
}

func TestPruneKeepsNonEmptyDirectories(t *testing.T) {
	e := newEngine(t)
	require.True(t, e.Create("/dir/leftover", false))
	require.True(t, e.Create("/dir/keep", false))

	e.Prune(nil)

	_, err := os.Stat(filepath.Join(e.Root(), "dir"))
	assert.NoError(t, err, "dir still has /dir/keep, must survive")
}

func TestPruneDeletesThenCleansEmptyDirs(t *testing.T) {
	e := newEngine(t)
	require.True(t, e.Create("/dir/only.txt", false))

	found, err := e.Scan()
	require.NoError(t, err)
	require.Len(t, found, 1)

	e.Prune(found)

	_, err = os.Stat(filepath.Join(e.Root(), "dir"))
	assert.True(t, os.IsNotExist(err), "empty ancestor directory should be pruned")
}
