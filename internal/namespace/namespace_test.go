package namespace

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujinfu/dfs/internal/rpcapi"
	"github.com/jujinfu/dfs/pkg/errtypes"
	"github.com/jujinfu/dfs/pkg/path"
)

type fakeData struct{ addr string }

func (f fakeData) Size(string) (int64, error)                { return 0, nil }
func (f fakeData) Read(string, int64, int64) ([]byte, error) { return nil, nil }
func (f fakeData) Write(string, int64, []byte) error         { return nil }
func (f fakeData) Addr() string                              { return f.addr }

type fakeCommand struct {
	addr string
	fail bool

	mu      sync.Mutex
	created map[string]bool
}

func (f *fakeCommand) Create(p string, isDir bool) (bool, error) {
	if f.fail {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		f.created = map[string]bool{}
	}
	if f.created[p] {
		return false, nil
	}
	f.created[p] = true
	return true, nil
}

func (f *fakeCommand) Delete(string) (bool, error) { return true, nil }
func (f *fakeCommand) Addr() string                { return f.addr }

type fakeHandle struct {
	data rpcapi.DataStub
	cmd  rpcapi.CommandStub
}

func (h fakeHandle) Data() rpcapi.DataStub       { return h.data }
func (h fakeHandle) Command() rpcapi.CommandStub { return h.cmd }

type fakePlacer struct{ handle StorageHandle }

func (p fakePlacer) Choose() (StorageHandle, error) { return p.handle, nil }

func newHandle(addr string) (StorageHandle, *fakeCommand) {
	cmd := &fakeCommand{addr: addr}
	return fakeHandle{data: fakeData{addr: addr}, cmd: cmd}, cmd
}

func TestCreateFileRequiresParent(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	_, err := ns.CreateFile(path.MustParse("/a/b"), fakePlacer{handle})
	assert.Error(t, err)
}

func TestCreateFileThenIsDirectoryAndList(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	ok, err := ns.CreateFile(path.MustParse("/a"), fakePlacer{handle})
	require.NoError(t, err)
	assert.True(t, ok)

	isDir, err := ns.IsDirectory(path.MustParse("/a"))
	require.NoError(t, err)
	assert.False(t, isDir)

	names, err := ns.List(path.Root())
	require.NoError(t, err)
	assert.Contains(t, names, "a")
}

func TestCreateDirectoryThenCreateFileInside(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	ok, err := ns.CreateDirectory(path.MustParse("/dir"), fakePlacer{handle})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ns.CreateFile(path.MustParse("/dir/file"), fakePlacer{handle})
	require.NoError(t, err)
	assert.True(t, ok)

	isDir, err := ns.IsDirectory(path.MustParse("/dir"))
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestCreateFileAlreadyExists(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	_, err := ns.CreateFile(path.MustParse("/a"), fakePlacer{handle})
	require.NoError(t, err)

	ok, err := ns.CreateFile(path.MustParse("/a"), fakePlacer{handle})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteRemovesSubtree(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	_, err := ns.CreateDirectory(path.MustParse("/dir"), fakePlacer{handle})
	require.NoError(t, err)
	_, err = ns.CreateFile(path.MustParse("/dir/a"), fakePlacer{handle})
	require.NoError(t, err)
	_, err = ns.CreateFile(path.MustParse("/dir/b"), fakePlacer{handle})
	require.NoError(t, err)

	ok, err := ns.Delete(path.MustParse("/dir"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ns.IsDirectory(path.MustParse("/dir"))
	assert.Error(t, err)
	_, err = ns.IsDirectory(path.MustParse("/dir/a"))
	assert.Error(t, err)
}

func TestDeleteDoesNotRemoveStringPrefixSibling(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	_, err := ns.CreateFile(path.MustParse("/a"), fakePlacer{handle})
	require.NoError(t, err)
	_, err = ns.CreateFile(path.MustParse("/ab"), fakePlacer{handle})
	require.NoError(t, err)

	ok, err := ns.Delete(path.MustParse("/a"))
	require.NoError(t, err)
	assert.True(t, ok)

	// "/ab" shares a string prefix with "/a" but is not a descendant;
	// deleting "/a" must leave it untouched.
	isDir, err := ns.IsDirectory(path.MustParse("/ab"))
	require.NoError(t, err)
	assert.False(t, isDir)
}

func TestDeleteRootIsRefused(t *testing.T) {
	ns := New(zerolog.Nop())
	ok, err := ns.Delete(path.Root())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegrateRegistrationSurvivorsAndConflicts(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	deleteList, err := ns.IntegrateRegistration(handle, []path.Path{
		path.MustParse("/a/b"),
		path.MustParse("/a/b"), // duplicate within the same registration
	})
	require.NoError(t, err)
	require.Len(t, deleteList, 1)
	assert.Equal(t, "/a/b", deleteList[0].String())

	isDir, err := ns.IsDirectory(path.MustParse("/a"))
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestIntegrateRegistrationShadowingExistingSubtree(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	_, err := ns.IntegrateRegistration(handle, []path.Path{path.MustParse("/a/b")})
	require.NoError(t, err)

	// /a is now implicitly a directory containing /a/b; registering /a
	// itself must be rejected since it would shadow the existing file.
	deleteList, err := ns.IntegrateRegistration(handle, []path.Path{path.MustParse("/a")})
	require.NoError(t, err)
	require.Len(t, deleteList, 1)
	assert.Equal(t, "/a", deleteList[0].String())
}

func TestIntegrateRegistrationAncestorIsFileConflict(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	// A single registration reporting "/a" as a file and "/a/b.txt"
	// underneath it: the second path's ancestor is already a known
	// file, so it must be flagged for deletion rather than inserted.
	deleteList, err := ns.IntegrateRegistration(handle, []path.Path{
		path.MustParse("/a"),
		path.MustParse("/a/b.txt"),
	})
	require.NoError(t, err)
	require.Len(t, deleteList, 1)
	assert.Equal(t, "/a/b.txt", deleteList[0].String())

	isDir, err := ns.IsDirectory(path.MustParse("/a"))
	require.NoError(t, err)
	assert.False(t, isDir)
}

func TestIntegrateRegistrationAncestorIsFileConflictAcrossCalls(t *testing.T) {
	ns := New(zerolog.Nop())
	handleA, _ := newHandle("s1")
	handleB, _ := newHandle("s2")

	_, err := ns.IntegrateRegistration(handleA, []path.Path{path.MustParse("/a")})
	require.NoError(t, err)

	deleteList, err := ns.IntegrateRegistration(handleB, []path.Path{path.MustParse("/a/b.txt")})
	require.NoError(t, err)
	require.Len(t, deleteList, 1)
	assert.Equal(t, "/a/b.txt", deleteList[0].String())
}

func TestGetStorageNotFound(t *testing.T) {
	ns := New(zerolog.Nop())
	_, err := ns.GetStorage(path.MustParse("/missing"))
	assert.Error(t, err)
	_, ok := err.(errtypes.IsNotFound)
	assert.True(t, ok)
}

func TestConcurrentCreatesOnDisjointPaths(t *testing.T) {
	ns := New(zerolog.Nop())
	handle, _ := newHandle("s1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, _ := path.Join(path.Root(), string(rune('a'+i)))
			_, _ = ns.CreateFile(name, fakePlacer{handle})
		}(i)
	}
	wg.Wait()

	names, err := ns.List(path.Root())
	require.NoError(t, err)
	assert.Len(t, names, 20)
}
