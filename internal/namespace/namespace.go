// Package namespace implements the in-memory hierarchical namespace: a
// directory tree plus the serverFiles/stub indexes that map every
// known path to the storage server(s) holding it, and the operations
// that read and mutate them.
package namespace

import (
	"math/rand"
	"sync"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jujinfu/dfs/internal/rpcapi"
	"github.com/jujinfu/dfs/pkg/errtypes"
	"github.com/jujinfu/dfs/pkg/path"
)

// StorageHandle is the pair of stubs handed back when a new path is
// placed on a storage server. *registry.Registration implements it.
type StorageHandle interface {
	Data() rpcapi.DataStub
	Command() rpcapi.CommandStub
}

// Placer chooses a storage server for a new path. Kept as a
// one-method interface so the placement policy stays swappable
// independent of the namespace it serves.
type Placer interface {
	Choose() (StorageHandle, error)
}

// node is an interior directory node: a named set of child file leaves
// and a map of child directory name to child node. The file-name set
// and directory-name map are disjoint by construction — every mutation
// path below checks the serverFiles index, which holds every file and
// directory path, before inserting into either.
type node struct {
	name   string
	parent *node
	files  map[string]struct{}
	dirs   map[string]*node
}

func newNode(name string, parent *node) *node {
	return &node{name: name, parent: parent, files: map[string]struct{}{}, dirs: map[string]*node{}}
}

// stubSet holds the parallel data/command stub lists registered for
// one path. Both lists are kept equal length and non-empty for as
// long as the path is reachable from stubsByPath.
type stubSet struct {
	data []rpcapi.DataStub
	cmd  []rpcapi.CommandStub
}

// Namespace is the whole tree rooted at a single node, plus the
// serverFiles and stub indexes. The zero value is not usable; use New.
type Namespace struct {
	mu sync.RWMutex

	root *node
	// serverFiles indexes every known path (file or directory, root
	// excluded) by its canonical string form. The value is unused; the
	// radix tree gives O(k) prefix queries, which the "does some
	// existing path strictly-prefix p" reconciliation check needs.
	serverFiles *radix.Tree
	stubs       map[string]*stubSet

	log zerolog.Logger
}

// New returns an empty Namespace containing only the root directory.
func New(log zerolog.Logger) *Namespace {
	return &Namespace{
		root:        newNode("/", nil),
		serverFiles: radix.New(),
		stubs:       map[string]*stubSet{},
		log:         log,
	}
}

// walk descends from root following p's components. It reports the
// node landed on, whether that node is a file leaf (rather than a
// directory), and whether the walk could complete at all. It
// implements the shared traversal rule: a component matching a known
// subdirectory descends, one matching a known file name stops
// immediately (file, regardless of remaining components), and
// anything else is NotFound.
//
// Callers must hold at least a read lock.
func (ns *Namespace) walk(p path.Path) (n *node, isFile bool, err error) {
	cur := ns.root
	for _, c := range p.Components() {
		if child, ok := cur.dirs[c]; ok {
			cur = child
			continue
		}
		if _, ok := cur.files[c]; ok {
			return nil, true, nil
		}
		return nil, false, errtypes.NotFound(p.String())
	}
	return cur, false, nil
}

// IsDirectory reports whether p names a directory rather than a file.
func (ns *Namespace) IsDirectory(p path.Path) (bool, error) {
	if p.IsRoot() {
		return true, nil
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	_, isFile, err := ns.walk(p)
	if err != nil {
		return false, err
	}
	return !isFile, nil
}

// List returns the names of the files and subdirectories directly
// under p.
func (ns *Namespace) List(p path.Path) ([]string, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var dir *node
	if p.IsRoot() {
		dir = ns.root
	} else {
		n, isFile, err := ns.walk(p)
		if err != nil {
			return nil, err
		}
		if isFile {
			return nil, errtypes.NotFound(p.String())
		}
		dir = n
	}

	names := make([]string, 0, len(dir.files)+len(dir.dirs))
	for name := range dir.files {
		names = append(names, name)
	}
	for name := range dir.dirs {
		names = append(names, name)
	}
	return names, nil
}

// GetStorage returns one of the data stubs registered for p, chosen
// uniformly at random, without tearing the stub list under concurrent
// calls.
func (ns *Namespace) GetStorage(p path.Path) (rpcapi.DataStub, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	set, ok := ns.stubs[p.String()]
	if !ok {
		return nil, errtypes.NotFound(p.String())
	}
	return set.data[rand.Intn(len(set.data))], nil
}

// parentIsDirectory reports whether p's parent exists as a directory.
// Creation requires the parent to already be present; it is never
// created recursively (see DESIGN.md for that decision).
//
// Callers must hold at least a read lock.
func (ns *Namespace) parentIsDirectory(p path.Path) error {
	parent, err := p.Parent()
	if err != nil {
		return errtypes.IllegalArgument("cannot create the root path")
	}
	if parent.IsRoot() {
		return nil
	}
	_, isFile, err := ns.walk(parent)
	if err != nil {
		return err
	}
	if isFile {
		return errtypes.NotFound(parent.String())
	}
	return nil
}

// createLeaf performs phase 3 of createFile/createDirectory: having
// already placed and created (or confirmed) the path remotely, attach
// it to the tree and both indexes under the write lock. Returns false
// without error if a concurrent operation won the race to create p
// first.
func (ns *Namespace) createLeaf(p path.Path, isDir bool, handle StorageHandle) (bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if err := ns.parentIsDirectory(p); err != nil {
		return false, err
	}
	if _, ok := ns.serverFiles.Get(p.String()); ok {
		return false, nil
	}

	parent, _ := p.Parent()
	parentNode, _, _ := ns.walk(parent)
	if parent.IsRoot() {
		parentNode = ns.root
	}

	name, _ := p.Last()
	if isDir {
		parentNode.dirs[name] = newNode(name, parentNode)
	} else {
		parentNode.files[name] = struct{}{}
	}

	ns.serverFiles.Insert(p.String(), struct{}{})
	ns.stubs[p.String()] = &stubSet{data: []rpcapi.DataStub{handle.Data()}, cmd: []rpcapi.CommandStub{handle.Command()}}
	return true, nil
}

// CreateFile places p on a storage server and records it as a file.
func (ns *Namespace) CreateFile(p path.Path, placer Placer) (bool, error) {
	return ns.create(p, false, placer)
}

// CreateDirectory places p on a storage server and records it as a
// directory, following the same placement-and-create flow as
// CreateFile.
func (ns *Namespace) CreateDirectory(p path.Path, placer Placer) (bool, error) {
	return ns.create(p, true, placer)
}

func (ns *Namespace) create(p path.Path, isDir bool, placer Placer) (bool, error) {
	if p.IsRoot() {
		return false, errtypes.IllegalArgument("cannot create the root path")
	}

	// Phase 1: validate against the current tree without blocking on
	// I/O, so a slow remote call never holds up unrelated readers.
	ns.mu.RLock()
	err := ns.parentIsDirectory(p)
	ns.mu.RUnlock()
	if err != nil {
		return false, err
	}

	// Phase 2: placement and the remote call, outside any NT lock.
	handle, err := placer.Choose()
	if err != nil {
		return false, err
	}
	created, err := handle.Command().Create(p.String(), isDir)
	if err != nil {
		return false, &errtypes.RemoteFailure{Op: "create", Err: err}
	}
	if !created {
		return false, nil
	}

	// Phase 3: integrate under the write lock.
	return ns.createLeaf(p, isDir, handle)
}

// Delete removes p and, if it is a directory, every descendant.
// Deleting the root path is refused locally, since root never carries
// a stub to call delete on.
func (ns *Namespace) Delete(p path.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}

	// Phase 1: confirm p is known and snapshot its command stubs.
	ns.mu.RLock()
	if _, ok := ns.serverFiles.Get(p.String()); !ok {
		ns.mu.RUnlock()
		return false, errtypes.NotFound(p.String())
	}
	cmds := append([]rpcapi.CommandStub{}, ns.stubs[p.String()].cmd...)
	ns.mu.RUnlock()

	// Phase 2: issue delete to every registered command stub, outside
	// any lock on the namespace. Abort and report the first failure.
	var g errgroup.Group
	results := make([]bool, len(cmds))
	for i, cmd := range cmds {
		i, cmd := i, cmd
		g.Go(func() error {
			ok, err := cmd.Delete(p.String())
			if err != nil {
				return &errtypes.RemoteFailure{Op: "delete", Err: err}
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}

	// Phase 3: cascade-remove p and every descendant from the tree and
	// both indexes, under the write lock.
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return true, ns.removeSubtree(p)
}

// removeSubtree detaches p from its parent and drops p plus every
// path it strictly-prefixes from serverFiles and the stub index. A
// directory delete is recursive at the storage engine, so the
// namespace must mirror that by forgetting every descendant path too.
//
// Callers must hold the write lock.
func (ns *Namespace) removeSubtree(p path.Path) error {
	parent, err := p.Parent()
	if err != nil {
		return err
	}
	parentNode := ns.root
	if !parent.IsRoot() {
		n, isFile, werr := ns.walk(parent)
		if werr != nil || isFile {
			return errtypes.NotFound(parent.String())
		}
		parentNode = n
	}

	name, _ := p.Last()
	delete(parentNode.files, name)
	delete(parentNode.dirs, name)

	prefix := p.String()
	var descendants []string
	ns.serverFiles.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		// WalkPrefix matches on the raw string prefix, which would
		// wrongly let a sibling like "/ab" through a prefix of "/a";
		// re-check component-wise before treating s as p or a
		// descendant of p.
		cand, err := path.Parse(s)
		if err != nil {
			return false
		}
		if cand.Equal(p) || cand.IsSubpathOf(p) {
			descendants = append(descendants, s)
		}
		return false
	})
	for _, s := range descendants {
		ns.serverFiles.Delete(s)
		delete(ns.stubs, s)
	}
	return nil
}

// IntegrateRegistration reconciles a freshly-registered storage
// server's reported paths against the current namespace: given its
// paths and stub pair, it computes the delete list (paths that must
// be removed from that server because another already owns them or
// their directory) and weaves every surviving path into the tree,
// creating any missing ancestor directories along the way. The whole
// computation is atomic against any concurrent read or write.
func (ns *Namespace) IntegrateRegistration(handle StorageHandle, paths []path.Path) ([]path.Path, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	var deleteList []path.Path
	for _, p := range paths {
		if p.IsRoot() {
			continue
		}
		_, alreadyKnown := ns.serverFiles.Get(p.String())
		switch {
		case alreadyKnown:
			deleteList = append(deleteList, p)
		case ns.anyStrictPrefixOf(p):
			deleteList = append(deleteList, p)
		case ns.ancestorIsFile(p):
			deleteList = append(deleteList, p)
		default:
			if err := ns.insertSurvivor(p, handle); err != nil {
				return nil, err
			}
		}
	}
	return deleteList, nil
}

// anyStrictPrefixOf reports whether some already-known path begins
// with p as a strict prefix — inserting p would shadow that sub-tree.
//
// Callers must hold the write lock.
func (ns *Namespace) anyStrictPrefixOf(p path.Path) bool {
	shadow := false
	ns.serverFiles.WalkPrefix(p.String()+"/", func(_ string, _ interface{}) bool {
		shadow = true
		return true
	})
	return shadow
}

// ancestorIsFile reports whether some proper ancestor of p is already
// known and recorded as a file rather than a directory. Registering p
// in that case would mean treating an existing file as a directory,
// which insertSurvivor cannot do safely — the caller must add p to
// the delete list instead of inserting it.
//
// Callers must hold the write lock.
func (ns *Namespace) ancestorIsFile(p path.Path) bool {
	cur := ns.root
	components := p.Components()
	for _, c := range components[:len(components)-1] {
		if child, ok := cur.dirs[c]; ok {
			cur = child
			continue
		}
		if _, ok := cur.files[c]; ok {
			return true
		}
		return false
	}
	return false
}

// insertSurvivor walks p from the root, creating any ancestor
// directory (and finally p itself, as a file) that is not already
// known, recording handle's stubs under every path it creates. Paths
// that already exist are left exactly as they are — their stubs stay
// with whoever created them first. Callers must have already ruled
// out anyStrictPrefixOf and ancestorIsFile for p; insertSurvivor
// still checks defensively and returns an IllegalState error rather
// than panicking if an "already known" ancestor turns out not to be a
// directory node.
//
// Callers must hold the write lock.
func (ns *Namespace) insertSurvivor(p path.Path, handle StorageHandle) error {
	cur := ns.root
	components := p.Components()
	built := path.Root()
	for i, c := range components {
		var err error
		built, err = path.Join(built, c)
		if err != nil {
			// components were already validated by path.Parse; unreachable.
			return nil
		}

		isLeaf := i == len(components)-1
		if _, ok := ns.serverFiles.Get(built.String()); ok {
			// Already known: descend (it must be a directory for every
			// non-leaf step, by invariant 1) and move on without
			// touching its stubs.
			child, ok := cur.dirs[c]
			if !ok {
				return errtypes.IllegalState("expected " + built.String() + " to be a directory node")
			}
			cur = child
			continue
		}

		if isLeaf {
			cur.files[c] = struct{}{}
		} else {
			child := newNode(c, cur)
			cur.dirs[c] = child
			cur = child
		}
		ns.serverFiles.Insert(built.String(), struct{}{})
		ns.stubs[built.String()] = &stubSet{data: []rpcapi.DataStub{handle.Data()}, cmd: []rpcapi.CommandStub{handle.Command()}}
	}
	return nil
}
