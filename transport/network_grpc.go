package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NetworkClient is the client API for the Network service's single
// bidi-streaming RPC, as described in spec §6. The method is exposed
// on the wire as exactly "connect"; it's named Connect here since
// "connect" collides with reserved identifiers in some client
// generators, exactly the caveat spec §6 calls out.
type NetworkClient interface {
	Connect(ctx context.Context, opts ...grpc.CallOption) (Network_ConnectClient, error)
}

type networkClient struct {
	cc grpc.ClientConnInterface
}

// NewNetworkClient returns a NetworkClient bound to cc.
func NewNetworkClient(cc grpc.ClientConnInterface) NetworkClient {
	return &networkClient{cc: cc}
}

func (c *networkClient) Connect(ctx context.Context, opts ...grpc.CallOption) (Network_ConnectClient, error) {
	stream, err := c.cc.NewStream(ctx, &_Network_serviceDesc.Streams[0], "/transport.Network/connect", opts...)
	if err != nil {
		return nil, err
	}
	return &networkConnectClientStream{stream}, nil
}

// Network_ConnectClient is the client side of the bidi stream.
type Network_ConnectClient interface {
	Send(*NetworkMessage) error
	Recv() (*NetworkMessage, error)
	grpc.ClientStream
}

type networkConnectClientStream struct {
	grpc.ClientStream
}

func (s *networkConnectClientStream) Send(m *NetworkMessage) error {
	return s.ClientStream.SendMsg(m)
}

func (s *networkConnectClientStream) Recv() (*NetworkMessage, error) {
	m := new(NetworkMessage)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NetworkServer is the server API for the Network service.
type NetworkServer interface {
	Connect(Network_ConnectServer) error
}

// Network_ConnectServer is the server side of the bidi stream.
type Network_ConnectServer interface {
	Send(*NetworkMessage) error
	Recv() (*NetworkMessage, error)
	grpc.ServerStream
}

type networkConnectServerStream struct {
	grpc.ServerStream
}

func (s *networkConnectServerStream) Send(m *NetworkMessage) error {
	return s.ServerStream.SendMsg(m)
}

func (s *networkConnectServerStream) Recv() (*NetworkMessage, error) {
	m := new(NetworkMessage)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Network_Connect_Handler(srv interface{}, stream grpc.ServerStream) error {
	impl, ok := srv.(NetworkServer)
	if !ok {
		return status.Error(codes.Internal, "transport: server does not implement NetworkServer")
	}
	return impl.Connect(&networkConnectServerStream{stream})
}

// RegisterNetworkServer registers srv with s, the way a protoc-generated
// RegisterNetworkServer would.
func RegisterNetworkServer(s grpc.ServiceRegistrar, srv NetworkServer) {
	s.RegisterService(&_Network_serviceDesc, srv)
}

var _Network_serviceDesc = grpc.ServiceDesc{
	ServiceName: "transport.Network",
	HandlerType: (*NetworkServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "connect",
			Handler:       _Network_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "transport.proto",
}
