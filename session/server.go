package session

import (
	"fmt"

	"google.golang.org/grpc/metadata"

	"github.com/nuts-foundation/nuts-go/dispatch"
	"github.com/nuts-foundation/nuts-go/transport"
)

// Server implements transport.NetworkServer: the inbound, symmetric half
// of spec §4.6. Each accepted stream goes through the same metadata
// handshake and runs the same outbound/inbound loops as the client side.
type Server struct {
	LocalPeerID string
	Strict      bool
	Dispatcher  *dispatch.Dispatcher

	// OnSession, if set, is called once per successfully handshaken
	// inbound session with the remote peer id.
	OnSession func(remotePeerID string)

	// OnClose, if set, is called once the inbound session's stream
	// terminates, with the same remote peer id passed to OnSession.
	OnClose func(remotePeerID string)
}

// Connect implements transport.NetworkServer.
func (s *Server) Connect(stream transport.Network_ConnectServer) error {
	md, ok := metadata.FromIncomingContext(stream.Context())
	if !ok {
		return fmt.Errorf("session: %w", ErrMissingRemotePeerID)
	}
	remotePeerID, err := resolvePeerID(md, s.Strict)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if err := stream.SendHeader(metadata.Pairs("peerid", s.LocalPeerID, "version", SupportedVersion)); err != nil {
		return fmt.Errorf("session: send response header: %w", err)
	}

	if s.OnSession != nil {
		s.OnSession(remotePeerID)
	}

	ctx := stream.Context()
	go runOutboundLoop(ctx, stream)
	runInboundPump(ctx, stream, remotePeerID, s.Dispatcher)
	if s.OnClose != nil {
		s.OnClose(remotePeerID)
	}
	return nil
}
