// Copyright 2018-2019 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package grace manages a server process's pid file and OS signal
// handling: write the pid at boot, remove it at exit, and translate
// SIGINT/SIGTERM/SIGQUIT into an orderly stop of the registered
// servers.
package grace

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Watcher owns a pid file and the set of servers to stop on shutdown.
type Watcher struct {
	log     zerolog.Logger
	pidFile string
	ss      []Server
}

// Option configures a Watcher.
type Option func(w *Watcher)

// WithLogger sets the Watcher's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithPIDFile sets the pid file path.
func WithPIDFile(fn string) Option {
	return func(w *Watcher) { w.pidFile = fn }
}

// NewWatcher creates a Watcher.
func NewWatcher(opts ...Option) *Watcher {
	w := &Watcher{
		log:     zerolog.Nop(),
		pidFile: path.Join(os.TempDir(), "dfs.pid"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Exit removes the pid file this process owns, then calls os.Exit.
func (w *Watcher) Exit(errc int) {
	if err := w.clean(); err != nil {
		w.log.Warn().Err(err).Msg("error removing pid file")
	} else {
		w.log.Info().Msgf("pid file %q removed", w.pidFile)
	}
	os.Exit(errc)
}

func (w *Watcher) clean() error {
	filePID, err := w.readPID()
	if err != nil {
		return err
	}
	if filePID != os.Getpid() {
		return fmt.Errorf("pid:%d in pidfile is different from pid:%d, refusing to remove", filePID, os.Getpid())
	}
	return os.Remove(w.pidFile)
}

func (w *Watcher) readPID() (int, error) {
	piddata, err := ioutil.ReadFile(w.pidFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(piddata))
}

// GetProcessFromFile reads pfile and returns the running process, or
// an error if the file or the process are not available.
func GetProcessFromFile(pfile string) (*os.Process, error) {
	data, err := ioutil.ReadFile(pfile)
	if err != nil {
		return nil, err
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return nil, err
	}
	return os.FindProcess(pid)
}

// WritePID writes the current pid to the configured pid file,
// refusing if another live process already owns it.
func (w *Watcher) WritePID() error {
	if piddata, err := ioutil.ReadFile(w.pidFile); err == nil {
		if pid, err := strconv.Atoi(string(piddata)); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("pid already running: %d", pid)
				}
			}
		}
	}

	if err := ioutil.WriteFile(w.pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0664); err != nil {
		return err
	}
	w.log.Info().Msgf("pidfile written to %s", w.pidFile)
	return nil
}

// Server is the interface a naming or storage server's RPC listener
// satisfies so the Watcher can stop it on shutdown.
type Server interface {
	Stop() error
	GracefulStop() error
	Network() string
	Address() string
}

// SetServers registers the servers to stop when a shutdown signal
// arrives.
func (w *Watcher) SetServers(servers []Server) {
	w.ss = servers
}

// TrapSignals blocks, translating OS signals into a stop of the
// registered servers: SIGQUIT requests a graceful stop with a 10
// second deadline, SIGINT/SIGTERM stop immediately.
func (w *Watcher) TrapSignals() {
	signalCh := make(chan os.Signal, 1024)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	for s := range signalCh {
		w.log.Info().Msgf("%v signal received", s)

		switch s {
		case syscall.SIGQUIT:
			w.log.Info().Msg("preparing for a graceful shutdown with deadline of 10 seconds")
			done := make(chan struct{})
			go func() {
				for _, srv := range w.ss {
					if err := srv.GracefulStop(); err != nil {
						w.log.Error().Err(err).Msg("error stopping server")
					}
					w.log.Info().Msgf("fd to %s:%s gracefully closed", srv.Network(), srv.Address())
				}
				close(done)
			}()
			select {
			case <-done:
				w.Exit(0)
			case <-time.After(10 * time.Second):
				w.log.Info().Msg("deadline reached before draining active conns, hard stopping")
				for _, srv := range w.ss {
					_ = srv.Stop()
				}
				w.Exit(1)
			}
		case syscall.SIGINT, syscall.SIGTERM:
			w.log.Info().Msg("preparing for hard shutdown, aborting all conns")
			for _, srv := range w.ss {
				if err := srv.Stop(); err != nil {
					w.log.Error().Err(err).Msg("error stopping server")
				}
			}
			w.Exit(0)
		}
	}
}
