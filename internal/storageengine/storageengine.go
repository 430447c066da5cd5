// Package storageengine implements the per-storage-server mapping
// from logical paths to a local filesystem root: the
// size/read/write/create/delete operations, and the startup prune of
// now-empty directories.
package storageengine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jujinfu/dfs/pkg/errtypes"
	spath "github.com/jujinfu/dfs/pkg/path"
)

// Engine is rooted at a local filesystem directory. The zero value is
// not usable; use New.
type Engine struct {
	root string
	log  zerolog.Logger
	lock *flock.Flock

	locks pathLocks
}

// New creates an Engine rooted at root, creating root if it does not
// exist, and takes an advisory lock on it: two Engines must not share
// a root, since the per-path serialization below assumes a single
// owning process.
func New(root string, log zerolog.Logger) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "storageengine: resolving root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "storageengine: creating root")
	}

	lockFile := flock.New(filepath.Join(abs, ".dfs.lock"))
	ok, err := lockFile.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "storageengine: locking root")
	}
	if !ok {
		return nil, errors.Errorf("storageengine: root %q is already owned by another storage server", abs)
	}

	return &Engine{root: abs, log: log, lock: lockFile, locks: newPathLocks()}, nil
}

// Close releases the root lock.
func (e *Engine) Close() error {
	return e.lock.Unlock()
}

// Root returns the engine's local filesystem root.
func (e *Engine) Root() string { return e.root }

// translate maps a logical path to a local filesystem path by joining
// it onto the root; a local path already carrying the root prefix is
// used as-is, so repeated translation is idempotent.
func (e *Engine) translate(logical string) string {
	if strings.HasPrefix(logical, e.root) {
		return logical
	}
	return filepath.Join(e.root, filepath.FromSlash(logical))
}

// Scan walks the local root and returns the logical paths of every
// regular file found, for use in the boot-time registration call.
func (e *Engine) Scan() ([]spath.Path, error) {
	var found []spath.Path
	err := filepath.Walk(e.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || p == filepath.Join(e.root, ".dfs.lock") {
			return nil
		}
		rel, err := filepath.Rel(e.root, p)
		if err != nil {
			return err
		}
		lp, perr := spath.Parse("/" + filepath.ToSlash(rel))
		if perr != nil {
			return nil // skip names the namespace's Path can't represent
		}
		found = append(found, lp)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "storageengine: scanning root")
	}
	return found, nil
}

// Size reports the byte length of the file at logical.
func (e *Engine) Size(logical string) (int64, error) {
	unlock := e.locks.rlock(logical)
	defer unlock()

	info, err := os.Stat(e.translate(logical))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errtypes.NotFound(logical)
		}
		return 0, &errtypes.IO{Path: logical, Err: err}
	}
	if info.IsDir() {
		return 0, errtypes.NotFound(logical)
	}
	return info.Size(), nil
}

// Read returns exactly length bytes starting at offset, bounds-checked
// against the file's current size.
func (e *Engine) Read(logical string, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, errtypes.IndexOutOfBounds(fmt.Sprintf("negative offset/length: %d/%d", offset, length))
	}

	unlock := e.locks.rlock(logical)
	defer unlock()

	f, err := os.Open(e.translate(logical))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errtypes.NotFound(logical)
		}
		return nil, &errtypes.IO{Path: logical, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &errtypes.IO{Path: logical, Err: err}
	}
	if info.IsDir() {
		return nil, errtypes.NotFound(logical)
	}
	if offset+length > info.Size() {
		return nil, errtypes.IndexOutOfBounds(fmt.Sprintf("read [%d,%d) exceeds size %d", offset, offset+length, info.Size()))
	}

	buf := make([]byte, length)
	if length > 0 {
		if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, &errtypes.IO{Path: logical, Err: err}
		}
	}
	return buf, nil
}

// Write writes data at offset, creating the file if needed. Offsets
// past the current end-of-file are zero-filled, and the write is
// fsynced before returning.
func (e *Engine) Write(logical string, offset int64, data []byte) error {
	if offset < 0 {
		return errtypes.IndexOutOfBounds(fmt.Sprintf("negative offset: %d", offset))
	}
	if data == nil {
		return errtypes.IllegalArgument("write requires non-nil data")
	}

	unlock := e.locks.lock(logical)
	defer unlock()

	local := e.translate(logical)
	f, err := os.OpenFile(local, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return errtypes.NotFound(logical)
		}
		return &errtypes.IO{Path: logical, Err: err}
	}
	defer f.Close()

	if _, err := f.WriteAt(data, offset); err != nil {
		return &errtypes.IO{Path: logical, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &errtypes.IO{Path: logical, Err: err}
	}
	return nil
}

// Create makes all missing ancestor directories, then either the
// empty file or the final directory itself, depending on isDir (see
// internal/rpcapi.CommandStub for why the flag exists). It returns
// false, without an error, both when the path already exists and when
// an I/O failure occurs — the caller sees only success/failure.
func (e *Engine) Create(logical string, isDir bool) bool {
	unlock := e.locks.lock(logical)
	defer unlock()

	local := e.translate(logical)
	if _, err := os.Lstat(local); err == nil {
		return false
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		e.log.Warn().Err(err).Str("path", logical).Msg("create: failed to prepare ancestor directories")
		return false
	}

	if isDir {
		if err := os.Mkdir(local, 0o755); err != nil {
			e.log.Warn().Err(err).Str("path", logical).Msg("create: mkdir failed")
			return false
		}
		return true
	}

	f, err := os.OpenFile(local, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		e.log.Warn().Err(err).Str("path", logical).Msg("create: open failed")
		return false
	}
	_ = f.Close()
	return true
}

// Delete removes logical. The root is refused; directories are
// removed recursively.
func (e *Engine) Delete(logical string) bool {
	if logical == "/" {
		return false
	}

	unlock := e.locks.lock(logical)
	defer unlock()

	if err := os.RemoveAll(e.translate(logical)); err != nil {
		e.log.Warn().Err(err).Str("path", logical).Msg("delete failed")
		return false
	}
	return true
}

// Prune deletes the paths in deleteList, then walks the local root
// bottom-up removing empty directories. A transient I/O error on a
// single directory is logged and skipped, not fatal.
func (e *Engine) Prune(deleteList []spath.Path) {
	var g errgroup.Group
	for _, p := range deleteList {
		p := p
		g.Go(func() error {
			e.Delete(p.String())
			return nil
		})
	}
	_ = g.Wait()

	e.pruneEmptyDirs(e.root)
}

// pruneEmptyDirs removes empty directories under dir, bottom-up,
// leaving the root itself even if it ends up empty.
func (e *Engine) pruneEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.log.Warn().Err(err).Str("dir", dir).Msg("prune: failed to read directory, skipping")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		e.pruneEmptyDirs(filepath.Join(dir, entry.Name()))
	}

	if dir == e.root {
		return
	}

	entries, err = os.ReadDir(dir)
	if err != nil {
		e.log.Warn().Err(err).Str("dir", dir).Msg("prune: failed to re-read directory, skipping")
		return
	}
	if len(entries) == 0 {
		if err := os.Remove(dir); err != nil {
			e.log.Warn().Err(err).Str("dir", dir).Msg("prune: failed to remove empty directory, skipping")
		}
	}
}

// pathLocks gives each logical path its own RWMutex, serializing
// write/create/delete against each other and against reads on the
// same path while leaving disjoint paths free to proceed in parallel.
type pathLocks struct {
	mu    sync.Mutex
	byKey map[string]*sync.RWMutex
}

func newPathLocks() pathLocks {
	return pathLocks{byKey: map[string]*sync.RWMutex{}}
}

func (p *pathLocks) get(key string) *sync.RWMutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.byKey[key]
	if !ok {
		l = &sync.RWMutex{}
		p.byKey[key] = l
	}
	return l
}

func (p *pathLocks) lock(key string) (unlock func()) {
	l := p.get(key)
	l.Lock()
	return l.Unlock
}

func (p *pathLocks) rlock(key string) (unlock func()) {
	l := p.get(key)
	l.RLock()
	return l.RUnlock
}
