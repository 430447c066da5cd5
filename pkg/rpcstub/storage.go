package rpcstub

// StorageHandler is a storage server's data-plane surface: reading and
// writing file bytes and reporting file size, addressed by logical
// path.
type StorageHandler interface {
	Size(path string) (int64, error)
	Read(path string, offset, length int64) ([]byte, error)
	Write(path string, offset int64, data []byte) error
}

// StorageReceiver adapts a StorageHandler to net/rpc.
type StorageReceiver struct {
	Handler StorageHandler
}

type sizeArgs struct{ Path string }
type sizeReply struct{ Value int64 }

type readArgs struct {
	Path   string
	Offset int64
	Length int64
}
type readReply struct{ Data []byte }

type writeArgs struct {
	Path   string
	Offset int64
	Data   []byte
}

func (s *StorageReceiver) Size(args sizeArgs, reply *sizeReply) error {
	v, err := s.Handler.Size(args.Path)
	reply.Value = v
	return encodeErr(err)
}

func (s *StorageReceiver) Read(args readArgs, reply *readReply) error {
	v, err := s.Handler.Read(args.Path, args.Offset, args.Length)
	reply.Data = v
	return encodeErr(err)
}

func (s *StorageReceiver) Write(args writeArgs, reply *boolReply) error {
	err := s.Handler.Write(args.Path, args.Offset, args.Data)
	reply.Value = err == nil
	return encodeErr(err)
}

// StorageStub is a stub for a storage server's Storage endpoint. It
// implements internal/rpcapi.DataStub directly, so the naming server
// can hold one per registered storage server without a further
// adapter.
type StorageStub struct {
	client *rpcClient
	addr   string
}

// DialStorage connects to a storage server's Storage endpoint.
func DialStorage(addr string) (*StorageStub, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, &remoteDialError{addr: addr, err: err}
	}
	return &StorageStub{client: &rpcClient{c: c, addr: addr}, addr: addr}, nil
}

func (s *StorageStub) Size(path string) (int64, error) {
	var reply sizeReply
	err := s.client.call("StorageReceiver.Size", sizeArgs{Path: path}, &reply)
	return reply.Value, decodeErr("Size", err)
}

func (s *StorageStub) Read(path string, offset, length int64) ([]byte, error) {
	var reply readReply
	err := s.client.call("StorageReceiver.Read", readArgs{Path: path, Offset: offset, Length: length}, &reply)
	return reply.Data, decodeErr("Read", err)
}

func (s *StorageStub) Write(path string, offset int64, data []byte) error {
	var reply boolReply
	err := s.client.call("StorageReceiver.Write", writeArgs{Path: path, Offset: offset, Data: data}, &reply)
	return decodeErr("Write", err)
}

// Addr returns the address this stub dials.
func (s *StorageStub) Addr() string { return s.addr }

func (s *StorageStub) Close() error { return s.client.c.Close() }
