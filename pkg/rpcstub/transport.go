// Package rpcstub builds the skeleton/stub pair naming and storage
// servers call each other through, directly on net/rpc — no codegen
// step, no IDL, just exported types with the right method shape (see
// DESIGN.md for why this is the one deliberately stdlib-only concern
// in the repository).
package rpcstub

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/rs/zerolog"
)

// Serve registers receiver (an exported type with net/rpc-shaped
// methods) as a skeleton and accepts connections on ln until it is
// closed. Each connection is served on its own goroutine, so the
// endpoint handles multiple in-flight calls concurrently.
//
// net/rpc derives the service name from receiver's type name (e.g. a
// *ServiceReceiver registers as "ServiceReceiver"); stub Call strings
// below are written against those exact names.
func Serve(ln net.Listener, log zerolog.Logger, receiver interface{}) error {
	server := rpc.NewServer()
	if err := server.Register(receiver); err != nil {
		return err
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("rpcstub: accept failed")
			continue
		}
		go server.ServeConn(conn)
	}
}

// dial opens a stub connection to a skeleton started with Serve.
func dial(addr string) (*rpc.Client, error) {
	return rpc.Dial("tcp", addr)
}
