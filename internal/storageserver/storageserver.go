// Package storageserver wires a local storage engine to the naming
// server: the boot-time scan-register-prune sequence, and the Storage
// and Command RPC endpoints a naming server and its clients call.
package storageserver

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jujinfu/dfs/internal/metrics"
	"github.com/jujinfu/dfs/internal/storageengine"
	"github.com/jujinfu/dfs/pkg/errtypes"
	spath "github.com/jujinfu/dfs/pkg/path"
	"github.com/jujinfu/dfs/pkg/rpcstub"
)

type state int

const (
	stateUnregistered state = iota
	stateRegistered
	stateDecommissioned
)

// Server owns a storage engine and the listeners that expose it.
// The zero value is not usable; use New.
type Server struct {
	mu    sync.Mutex
	state state

	engine *storageengine.Engine
	log    zerolog.Logger
	m      *metrics.Storage

	storageLn net.Listener
	commandLn net.Listener
}

// New returns a Server wrapping engine, in the Unregistered state.
func New(engine *storageengine.Engine, log zerolog.Logger, m *metrics.Storage) *Server {
	return &Server{engine: engine, log: log, m: m}
}

// Boot runs the full startup sequence: bind the Storage and Command
// listeners, scan the local root, register with the naming server at
// namingAddr advertising storageAddr/commandAddr as this server's own
// externally-routable endpoints, then delete and prune whatever the
// naming server's delete list names.
func (s *Server) Boot(namingAddr, storageAddr, commandAddr string, capacity int64) error {
	s.mu.Lock()
	if s.state != stateUnregistered {
		s.mu.Unlock()
		return errtypes.IllegalState("storage server is not in the Unregistered state")
	}
	s.mu.Unlock()

	storageLn, err := net.Listen("tcp", storageAddr)
	if err != nil {
		return err
	}
	commandLn, err := net.Listen("tcp", commandAddr)
	if err != nil {
		_ = storageLn.Close()
		return err
	}

	s.mu.Lock()
	s.storageLn = storageLn
	s.commandLn = commandLn
	s.mu.Unlock()

	go func() {
		if err := rpcstub.Serve(storageLn, s.log, &rpcstub.StorageReceiver{Handler: storageHandler{s}}); err != nil {
			s.log.Error().Err(err).Msg("storage endpoint stopped serving")
		}
	}()
	go func() {
		if err := rpcstub.Serve(commandLn, s.log, &rpcstub.CommandReceiver{Handler: commandHandler{s}}); err != nil {
			s.log.Error().Err(err).Msg("command endpoint stopped serving")
		}
	}()

	found, err := s.engine.Scan()
	if err != nil {
		return err
	}
	files := make([]string, len(found))
	for i, p := range found {
		files[i] = p.String()
	}

	regClient, err := rpcstub.DialRegistration(namingAddr)
	if err != nil {
		return err
	}
	defer regClient.Close()

	deleteList, err := regClient.Register(storageAddr, commandAddr, files, capacity)
	if err != nil {
		return err
	}

	paths := make([]spath.Path, 0, len(deleteList))
	for _, d := range deleteList {
		p, perr := spath.Parse(d)
		if perr != nil {
			continue
		}
		paths = append(paths, p)
	}
	s.engine.Prune(paths)

	s.mu.Lock()
	s.state = stateRegistered
	s.mu.Unlock()

	s.log.Info().Str("naming", namingAddr).Int("deleted", len(deleteList)).Msg("storage server registered")
	return nil
}

// Decommission transitions Registered to Decommissioned, closing both
// listeners. The naming server's namespace entries referring to this
// server's stubs are left for it to discover as remote failures on
// next use; this server does not notify the naming server directly.
func (s *Server) Decommission() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRegistered {
		return errtypes.IllegalState("storage server is not in the Registered state")
	}
	s.state = stateDecommissioned
	s.log.Info().Msg("storage server decommissioned")

	err1 := s.storageLn.Close()
	err2 := s.commandLn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Stop decommissions the server, to satisfy internal/grace.Server.
func (s *Server) Stop() error { return s.Decommission() }

// GracefulStop is equivalent to Stop: neither RPC endpoint supports
// draining in-flight calls, so a graceful and a hard stop coincide.
func (s *Server) GracefulStop() error { return s.Decommission() }

// Network reports the Storage listener's network, to satisfy
// internal/grace.Server.
func (s *Server) Network() string { return "tcp" }

// Address reports the Storage listener's address, to satisfy
// internal/grace.Server.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storageLn == nil {
		return ""
	}
	return s.storageLn.Addr().String()
}

type storageHandler struct{ s *Server }

func (h storageHandler) Size(path string) (int64, error) {
	return h.s.engine.Size(path)
}

func (h storageHandler) Read(path string, offset, length int64) ([]byte, error) {
	data, err := h.s.engine.Read(path, offset, length)
	if err == nil && h.s.m != nil {
		h.s.m.BytesRead.Add(float64(len(data)))
	}
	return data, err
}

func (h storageHandler) Write(path string, offset int64, data []byte) error {
	err := h.s.engine.Write(path, offset, data)
	if err == nil && h.s.m != nil {
		h.s.m.BytesWritten.Add(float64(len(data)))
	}
	return err
}

type commandHandler struct{ s *Server }

func (h commandHandler) observe(method string, ok bool) {
	if h.s.m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	h.s.m.CommandCalls.WithLabelValues(method, outcome).Inc()
}

func (h commandHandler) Create(path string, isDir bool) (bool, error) {
	ok := h.s.engine.Create(path, isDir)
	h.observe("create", ok)
	return ok, nil
}

func (h commandHandler) Delete(path string) (bool, error) {
	ok := h.s.engine.Delete(path)
	h.observe("delete", ok)
	return ok, nil
}
