// Package namingserver wires the namespace and registry packages
// together behind the two RPC endpoints a client or a storage server
// actually dials: Service and Registration.
package namingserver

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jujinfu/dfs/internal/metrics"
	"github.com/jujinfu/dfs/internal/namespace"
	"github.com/jujinfu/dfs/internal/registry"
	"github.com/jujinfu/dfs/pkg/errtypes"
	"github.com/jujinfu/dfs/pkg/path"
	"github.com/jujinfu/dfs/pkg/rpcstub"
)

type state int

const (
	stateStopped state = iota
	stateRunning
)

// Server owns one naming server's namespace and registry, and the two
// listeners serving them over the network. The zero value is not
// usable; use New.
type Server struct {
	mu    sync.Mutex
	state state

	ns  *namespace.Namespace
	reg *registry.Registry
	log zerolog.Logger
	m   *metrics.Naming

	serviceLn      net.Listener
	registrationLn net.Listener
}

// New returns a Server in the Stopped state.
func New(log zerolog.Logger, m *metrics.Naming) *Server {
	return &Server{
		ns:  namespace.New(log),
		reg: registry.New(log),
		log: log,
		m:   m,
	}
}

// Start transitions Stopped to Running: it binds both the Service and
// Registration endpoints and begins serving. Failure on either leaves
// the Server Stopped. A Server that has already run once, and was
// stopped, cannot be started again.
func (s *Server) Start(serviceAddr, registrationAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateStopped {
		return errtypes.IllegalState("naming server is not in the Stopped state")
	}
	if s.serviceLn != nil {
		return errtypes.IllegalState("naming server has been stopped and cannot be started again")
	}

	serviceLn, err := net.Listen("tcp", serviceAddr)
	if err != nil {
		return err
	}
	registrationLn, err := net.Listen("tcp", registrationAddr)
	if err != nil {
		_ = serviceLn.Close()
		return err
	}

	s.serviceLn = serviceLn
	s.registrationLn = registrationLn
	s.state = stateRunning

	go func() {
		if err := rpcstub.Serve(serviceLn, s.log, &rpcstub.ServiceReceiver{Handler: serviceHandler{s}}); err != nil {
			s.log.Error().Err(err).Msg("service endpoint stopped serving")
		}
	}()
	go func() {
		if err := rpcstub.Serve(registrationLn, s.log, &rpcstub.RegistrationReceiver{Handler: registrationHandler{s}}); err != nil {
			s.log.Error().Err(err).Msg("registration endpoint stopped serving")
		}
	}()

	s.log.Info().Str("service", serviceAddr).Str("registration", registrationAddr).Msg("naming server running")
	return nil
}

// Stop transitions Running back to Stopped, closing both listeners.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		return errtypes.IllegalState("naming server is not in the Running state")
	}
	s.state = stateStopped
	s.log.Info().Msg("naming server stopped")

	err1 := s.serviceLn.Close()
	err2 := s.registrationLn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// GracefulStop is equivalent to Stop: neither RPC endpoint supports
// draining in-flight calls, so a graceful and a hard stop coincide.
func (s *Server) GracefulStop() error { return s.Stop() }

// Network reports the Service listener's network, to satisfy
// internal/grace.Server.
func (s *Server) Network() string { return "tcp" }

// Address reports the Service listener's address, to satisfy
// internal/grace.Server.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serviceLn == nil {
		return ""
	}
	return s.serviceLn.Addr().String()
}

// placerAdapter narrows a *registry.Registry to namespace.Placer.
type placerAdapter struct{ reg *registry.Registry }

func (p placerAdapter) Choose() (namespace.StorageHandle, error) {
	reg, err := p.reg.Choose()
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// serviceHandler implements rpcstub.ServiceHandler against a Server's
// namespace.
type serviceHandler struct{ s *Server }

func (h serviceHandler) observe(method string, err error) {
	if h.s.m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.s.m.ServiceCalls.WithLabelValues(method, outcome).Inc()
}

func (h serviceHandler) IsDirectory(p string) (bool, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("isDirectory", err)
		return false, err
	}
	v, err := h.s.ns.IsDirectory(parsed)
	h.observe("isDirectory", err)
	return v, err
}

func (h serviceHandler) List(p string) ([]string, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("list", err)
		return nil, err
	}
	v, err := h.s.ns.List(parsed)
	h.observe("list", err)
	return v, err
}

func (h serviceHandler) CreateFile(p string) (bool, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("createFile", err)
		return false, err
	}
	v, err := h.s.ns.CreateFile(parsed, placerAdapter{h.s.reg})
	h.observe("createFile", err)
	return v, err
}

func (h serviceHandler) CreateDirectory(p string) (bool, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("createDirectory", err)
		return false, err
	}
	v, err := h.s.ns.CreateDirectory(parsed, placerAdapter{h.s.reg})
	h.observe("createDirectory", err)
	return v, err
}

func (h serviceHandler) Delete(p string) (bool, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("delete", err)
		return false, err
	}
	v, err := h.s.ns.Delete(parsed)
	h.observe("delete", err)
	return v, err
}

func (h serviceHandler) GetStorage(p string) (string, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		h.observe("getStorage", err)
		return "", err
	}
	stub, err := h.s.ns.GetStorage(parsed)
	if err != nil {
		h.observe("getStorage", err)
		return "", err
	}
	h.observe("getStorage", nil)
	return stub.Addr(), nil
}

// registrationHandler implements rpcstub.RegistrationHandler,
// dialing back out to the announced addresses to build the stub pair
// the namespace and registry will hold for the new storage server.
type registrationHandler struct{ s *Server }

func (h registrationHandler) Register(storageAddr, commandAddr string, files []string, capacity int64) ([]string, error) {
	data, err := rpcstub.DialStorage(storageAddr)
	if err != nil {
		return nil, err
	}
	cmd, err := rpcstub.DialCommand(commandAddr)
	if err != nil {
		return nil, err
	}

	reg, err := h.s.reg.Register(data, cmd, capacity)
	if err != nil {
		return nil, err
	}

	paths := make([]path.Path, 0, len(files))
	for _, f := range files {
		p, perr := path.Parse(f)
		if perr != nil {
			continue
		}
		paths = append(paths, p)
	}

	deleteList, err := h.s.ns.IntegrateRegistration(reg, paths)
	if err != nil {
		return nil, err
	}

	if h.s.m != nil {
		h.s.m.Registrations.Inc()
		h.s.m.DeleteListSize.Observe(float64(len(deleteList)))
		h.s.m.RegisteredCount.Set(float64(h.s.reg.Len()))
	}

	out := make([]string, len(deleteList))
	for i, p := range deleteList {
		out[i] = p.String()
	}
	return out, nil
}
