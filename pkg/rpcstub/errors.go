package rpcstub

import (
	"errors"
	"strings"

	"github.com/jujinfu/dfs/pkg/errtypes"
)

// Application errors (NotFound, IllegalArgument, IllegalState,
// IndexOutOfBounds, IO) cross net/rpc as plain strings — the stdlib
// transport has no notion of typed errors. A short, grep-able prefix
// lets the client side reconstruct the original kind; anything without
// a recognized prefix is a genuine transport failure and is wrapped as
// errtypes.RemoteFailure instead.
const (
	prefixNotFound         = "NOTFOUND:"
	prefixIllegalArgument  = "ILLEGALARG:"
	prefixIllegalState     = "ILLEGALSTATE:"
	prefixIndexOutOfBounds = "OOB:"
	prefixIO               = "IO:"
)

// encodeErr turns a business error into the string net/rpc will carry
// back to the caller. Transport errors never reach here: this only
// runs on the return path of a skeleton method that already executed.
func encodeErr(err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case errtypes.NotFound:
		return errors.New(prefixNotFound + string(e))
	case errtypes.IllegalArgument:
		return errors.New(prefixIllegalArgument + string(e))
	case errtypes.IllegalState:
		return errors.New(prefixIllegalState + string(e))
	case errtypes.IndexOutOfBounds:
		return errors.New(prefixIndexOutOfBounds + string(e))
	case *errtypes.IO:
		return errors.New(prefixIO + e.Error())
	default:
		return err
	}
}

// decodeErr is encodeErr's inverse, run on the stub side. An error
// with no recognized prefix came from the transport itself (dial
// failure, connection reset, a call against a closed client) and is
// reported as errtypes.RemoteFailure: the caller sees remote failures
// as-is, never silently.
func decodeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, prefixNotFound):
		return errtypes.NotFound(strings.TrimPrefix(msg, prefixNotFound))
	case strings.HasPrefix(msg, prefixIllegalArgument):
		return errtypes.IllegalArgument(strings.TrimPrefix(msg, prefixIllegalArgument))
	case strings.HasPrefix(msg, prefixIllegalState):
		return errtypes.IllegalState(strings.TrimPrefix(msg, prefixIllegalState))
	case strings.HasPrefix(msg, prefixIndexOutOfBounds):
		return errtypes.IndexOutOfBounds(strings.TrimPrefix(msg, prefixIndexOutOfBounds))
	case strings.HasPrefix(msg, prefixIO):
		return &errtypes.IO{Err: errors.New(strings.TrimPrefix(msg, prefixIO))}
	default:
		return &errtypes.RemoteFailure{Op: op, Err: err}
	}
}
