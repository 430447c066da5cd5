package rpcstub

// CommandHandler is a storage server's control-plane surface: creating
// and deleting paths on the naming server's behalf.
type CommandHandler interface {
	Create(path string, isDir bool) (bool, error)
	Delete(path string) (bool, error)
}

// CommandReceiver adapts a CommandHandler to net/rpc.
type CommandReceiver struct {
	Handler CommandHandler
}

type createArgs struct {
	Path  string
	IsDir bool
}

func (c *CommandReceiver) Create(args createArgs, reply *boolReply) error {
	v, err := c.Handler.Create(args.Path, args.IsDir)
	reply.Value = v
	return encodeErr(err)
}

func (c *CommandReceiver) Delete(args pathArgs, reply *boolReply) error {
	v, err := c.Handler.Delete(args.Path)
	reply.Value = v
	return encodeErr(err)
}

// CommandStub is a stub for a storage server's Command endpoint. It
// implements internal/rpcapi.CommandStub directly.
type CommandStub struct {
	client *rpcClient
	addr   string
}

// DialCommand connects to a storage server's Command endpoint.
func DialCommand(addr string) (*CommandStub, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, &remoteDialError{addr: addr, err: err}
	}
	return &CommandStub{client: &rpcClient{c: c, addr: addr}, addr: addr}, nil
}

func (c *CommandStub) Create(path string, isDir bool) (bool, error) {
	var reply boolReply
	err := c.client.call("CommandReceiver.Create", createArgs{Path: path, IsDir: isDir}, &reply)
	return reply.Value, decodeErr("Create", err)
}

func (c *CommandStub) Delete(path string) (bool, error) {
	var reply boolReply
	err := c.client.call("CommandReceiver.Delete", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("Delete", err)
}

// Addr returns the address this stub dials.
func (c *CommandStub) Addr() string { return c.addr }

func (c *CommandStub) Close() error { return c.client.c.Close() }
