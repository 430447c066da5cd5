package rpcstub

// ServiceHandler is the naming server's client-facing directory
// surface, expressed in terms of wire values (plain strings) rather
// than pkg/path.Path or stub types, so it can be the target of a
// net/rpc skeleton.
type ServiceHandler interface {
	IsDirectory(path string) (bool, error)
	List(path string) ([]string, error)
	CreateFile(path string) (bool, error)
	CreateDirectory(path string) (bool, error)
	Delete(path string) (bool, error)
	// GetStorage returns the address of the Storage endpoint serving
	// path, for the client to dial directly.
	GetStorage(path string) (string, error)
}

// ServiceReceiver adapts a ServiceHandler to net/rpc's calling
// convention. Its type name ("ServiceReceiver") is the service name
// ServiceClient calls against.
type ServiceReceiver struct {
	Handler ServiceHandler
}

type pathArgs struct{ Path string }
type boolReply struct{ Value bool }
type namesReply struct{ Names []string }
type stringReply struct{ Value string }

func (s *ServiceReceiver) IsDirectory(args pathArgs, reply *boolReply) error {
	v, err := s.Handler.IsDirectory(args.Path)
	reply.Value = v
	return encodeErr(err)
}

func (s *ServiceReceiver) List(args pathArgs, reply *namesReply) error {
	v, err := s.Handler.List(args.Path)
	reply.Names = v
	return encodeErr(err)
}

func (s *ServiceReceiver) CreateFile(args pathArgs, reply *boolReply) error {
	v, err := s.Handler.CreateFile(args.Path)
	reply.Value = v
	return encodeErr(err)
}

func (s *ServiceReceiver) CreateDirectory(args pathArgs, reply *boolReply) error {
	v, err := s.Handler.CreateDirectory(args.Path)
	reply.Value = v
	return encodeErr(err)
}

func (s *ServiceReceiver) Delete(args pathArgs, reply *boolReply) error {
	v, err := s.Handler.Delete(args.Path)
	reply.Value = v
	return encodeErr(err)
}

func (s *ServiceReceiver) GetStorage(args pathArgs, reply *stringReply) error {
	v, err := s.Handler.GetStorage(args.Path)
	reply.Value = v
	return encodeErr(err)
}

// ServiceClient is a stub for the naming server's Service endpoint.
type ServiceClient struct {
	client *rpcClient
}

// DialService connects to a naming server's Service endpoint at addr.
func DialService(addr string) (*ServiceClient, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, &remoteDialError{addr: addr, err: err}
	}
	return &ServiceClient{client: &rpcClient{c: c, addr: addr}}, nil
}

func (s *ServiceClient) IsDirectory(path string) (bool, error) {
	var reply boolReply
	err := s.client.call("ServiceReceiver.IsDirectory", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("IsDirectory", err)
}

func (s *ServiceClient) List(path string) ([]string, error) {
	var reply namesReply
	err := s.client.call("ServiceReceiver.List", pathArgs{Path: path}, &reply)
	return reply.Names, decodeErr("List", err)
}

func (s *ServiceClient) CreateFile(path string) (bool, error) {
	var reply boolReply
	err := s.client.call("ServiceReceiver.CreateFile", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("CreateFile", err)
}

func (s *ServiceClient) CreateDirectory(path string) (bool, error) {
	var reply boolReply
	err := s.client.call("ServiceReceiver.CreateDirectory", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("CreateDirectory", err)
}

func (s *ServiceClient) Delete(path string) (bool, error) {
	var reply boolReply
	err := s.client.call("ServiceReceiver.Delete", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("Delete", err)
}

func (s *ServiceClient) GetStorage(path string) (string, error) {
	var reply stringReply
	err := s.client.call("ServiceReceiver.GetStorage", pathArgs{Path: path}, &reply)
	return reply.Value, decodeErr("GetStorage", err)
}

// Close closes the underlying connection.
func (s *ServiceClient) Close() error { return s.client.c.Close() }
