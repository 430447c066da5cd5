package rpcstub

import (
	"net/rpc"

	"github.com/jujinfu/dfs/pkg/errtypes"
)

// rpcClient wraps a net/rpc client connection together with the
// address it was dialed against. call returns the client's errors
// unchanged; the address is not added to them.
type rpcClient struct {
	c    *rpc.Client
	addr string
}

func (r *rpcClient) call(serviceMethod string, args, reply interface{}) error {
	return r.c.Call(serviceMethod, args, reply)
}

// remoteDialError reports a failure to establish a stub connection,
// before any call could be attempted.
type remoteDialError struct {
	addr string
	err  error
}

func (e *remoteDialError) Error() string {
	return "rpcstub: dial " + e.addr + ": " + e.err.Error()
}

func (e *remoteDialError) Unwrap() error { return e.err }

func (e *remoteDialError) IsRemoteFailure() {}

var _ errtypes.IsRemoteFailure = (*remoteDialError)(nil)
