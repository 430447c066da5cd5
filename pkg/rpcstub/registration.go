package rpcstub

// RegistrationHandler is the naming server's storage-join surface: a
// storage server calls Register once at boot, announcing its Storage
// and Command addresses, the paths it already holds, and a capacity
// hint, and receives back the set of paths it must delete because
// another server already owns them.
type RegistrationHandler interface {
	Register(storageAddr, commandAddr string, files []string, capacity int64) (deleteList []string, err error)
}

// RegistrationReceiver adapts a RegistrationHandler to net/rpc.
type RegistrationReceiver struct {
	Handler RegistrationHandler
}

type registerArgs struct {
	StorageAddr string
	CommandAddr string
	Files       []string
	Capacity    int64
}

type registerReply struct {
	DeleteList []string
}

func (r *RegistrationReceiver) Register(args registerArgs, reply *registerReply) error {
	dl, err := r.Handler.Register(args.StorageAddr, args.CommandAddr, args.Files, args.Capacity)
	reply.DeleteList = dl
	return encodeErr(err)
}

// RegistrationClient is a stub for the naming server's Registration
// endpoint, used once by a storage server at boot.
type RegistrationClient struct {
	client *rpcClient
}

// DialRegistration connects to a naming server's Registration endpoint.
func DialRegistration(addr string) (*RegistrationClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, &remoteDialError{addr: addr, err: err}
	}
	return &RegistrationClient{client: &rpcClient{c: c, addr: addr}}, nil
}

func (r *RegistrationClient) Register(storageAddr, commandAddr string, files []string, capacity int64) ([]string, error) {
	var reply registerReply
	err := r.client.call("RegistrationReceiver.Register", registerArgs{
		StorageAddr: storageAddr,
		CommandAddr: commandAddr,
		Files:       files,
		Capacity:    capacity,
	}, &reply)
	return reply.DeleteList, decodeErr("Register", err)
}

func (r *RegistrationClient) Close() error { return r.client.c.Close() }
