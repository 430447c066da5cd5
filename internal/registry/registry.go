// Package registry tracks the set of currently registered storage
// servers and picks one of them to receive a newly created path.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jujinfu/dfs/internal/rpcapi"
	"github.com/jujinfu/dfs/pkg/errtypes"
)

// ErrNoStorageAvailable is returned by Choose when no storage server is
// registered. A distinct error lets callers tell "no parent directory"
// apart from "no storage capacity" (see DESIGN.md).
var ErrNoStorageAvailable = errtypes.IllegalState("no storage server available for placement")

// Registration describes one registered storage server: its data and
// command stubs, and a mutable capacity hint that Choose uses to pick
// a placement target. It implements namespace.StorageHandle.
type Registration struct {
	ID      uuid.UUID
	data    rpcapi.DataStub
	command rpcapi.CommandStub
	// capacity is read and written atomically, without the Registry
	// lock: it is advisory, and a stale value only affects which server
	// Choose picks.
	capacity int64
}

// Data returns the registration's data stub.
func (r *Registration) Data() rpcapi.DataStub { return r.data }

// Command returns the registration's command stub.
func (r *Registration) Command() rpcapi.CommandStub { return r.command }

// Capacity returns the current capacity hint.
func (r *Registration) Capacity() int64 { return atomic.LoadInt64(&r.capacity) }

// SetCapacity updates the capacity hint, e.g. from a periodic
// heartbeat. The core registration protocol never calls this; it
// exists so a fuller deployment can refresh the hint without
// re-registering.
func (r *Registration) SetCapacity(c int64) { atomic.StoreInt64(&r.capacity, c) }

// Registry is the naming server's set of known storage servers (PR's
// "registered storage servers"). The zero value is not usable; use
// New.
type Registry struct {
	mu   sync.RWMutex
	regs []*Registration
	log  zerolog.Logger
}

// New returns an empty Registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{log: log}
}

// Register adds a new storage server to the set. It rejects a null
// data or command stub as IllegalArgument, and rejects re-registering
// a (data, command) pair that is already known as IllegalState —
// matching on either stub alone is not sufficient, since a storage
// server could in principle rebind just one of its two endpoints.
func (r *Registry) Register(data rpcapi.DataStub, command rpcapi.CommandStub, capacity int64) (*Registration, error) {
	if data == nil || command == nil {
		return nil, errtypes.IllegalArgument("data and command stubs are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.regs {
		if existing.data.Addr() == data.Addr() && existing.command.Addr() == command.Addr() {
			return nil, errtypes.IllegalState("storage server already registered: " + data.Addr())
		}
	}

	reg := &Registration{ID: uuid.New(), data: data, command: command, capacity: capacity}
	r.regs = append(r.regs, reg)
	r.log.Info().Str("registration", reg.ID.String()).Str("addr", data.Addr()).Msg("storage server registered")
	return reg, nil
}

// Remove decommissions a storage server: it is no longer a placement
// candidate. Namespace entries referring to its stubs are left
// untouched — that is the namespace package's concern, not this one's.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, reg := range r.regs {
		if reg.ID == id {
			r.regs = append(r.regs[:i], r.regs[i+1:]...)
			r.log.Info().Str("registration", id.String()).Msg("storage server decommissioned")
			return true
		}
	}
	return false
}

// Choose picks the registration with the largest capacity hint, ties
// broken toward the earliest-registered (deterministic for a given
// registration order). It returns ErrNoStorageAvailable if nothing is
// registered.
func (r *Registry) Choose() (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.regs) == 0 {
		return nil, ErrNoStorageAvailable
	}

	best := r.regs[0]
	bestCap := best.Capacity()
	for _, reg := range r.regs[1:] {
		if c := reg.Capacity(); c > bestCap {
			best, bestCap = reg, c
		}
	}
	return best, nil
}

// List returns a snapshot of all currently registered storage servers.
func (r *Registry) List() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Registration, len(r.regs))
	copy(out, r.regs)
	return out
}

// Len reports how many storage servers are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}
