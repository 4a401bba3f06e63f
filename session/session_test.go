package session

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nuts-foundation/nuts-go/dispatch"
	"github.com/nuts-foundation/nuts-go/graphstore"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/store"
	"github.com/nuts-foundation/nuts-go/transport"
)

func TestResolvePeerIDRequiresPeerID(t *testing.T) {
	md := metadata.Pairs("version", "1")
	if _, err := resolvePeerID(md, false); err != ErrMissingRemotePeerID {
		t.Fatalf("expected ErrMissingRemotePeerID, got %v", err)
	}
}

func TestResolvePeerIDDefaultsVersionWhenNotStrict(t *testing.T) {
	md := metadata.Pairs("peerid", "peer-a")
	got, err := resolvePeerID(md, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "peer-a" {
		t.Fatalf("expected peer-a, got %s", got)
	}
}

func TestResolvePeerIDRequiresVersionWhenStrict(t *testing.T) {
	md := metadata.Pairs("peerid", "peer-a")
	if _, err := resolvePeerID(md, true); err != ErrUnsupportedProtocolVersion {
		t.Fatalf("expected ErrUnsupportedProtocolVersion, got %v", err)
	}
}

func TestResolvePeerIDRejectsWrongVersion(t *testing.T) {
	md := metadata.Pairs("peerid", "peer-a", "version", "2")
	if _, err := resolvePeerID(md, false); err == nil {
		t.Fatal("expected an error for unsupported version 2")
	}
}

// TestHandshakeOverBufconn exercises a full client/server connect() round
// trip in-process (plaintext, over bufconn, since TLS material setup is
// out of scope for this unit test) and checks both sides learn the
// other's peer id.
func TestHandshakeOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	defer lis.Close()

	serverStore := store.NewMemory()
	ks, _ := keystore.Open(serverStore)
	g, _ := graphstore.Open(serverStore)
	d := dispatch.New(ks, g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	received := make(chan string, 1)
	srv := &Server{
		LocalPeerID: "server-peer",
		Dispatcher:  d,
		OnSession: func(remotePeerID string) {
			select {
			case received <- remotePeerID:
			default:
			}
		},
	}

	grpcServer := grpc.NewServer()
	transport.RegisterNetworkServer(grpcServer, srv)
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(transport.CodecName)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	client := transport.NewNetworkClient(conn)
	outCtx := metadata.AppendToOutgoingContext(ctx, "peerid", "client-peer", "version", SupportedVersion)
	clientStream, err := client.Connect(outCtx)
	if err != nil {
		t.Fatal(err)
	}
	if err := clientStream.Send(&transport.NetworkMessage{
		TransactionListQuery: &transport.TransactionListQuery{BlockDate: 0},
	}); err != nil {
		t.Fatal(err)
	}

	header, err := clientStream.Header()
	if err != nil {
		t.Fatal(err)
	}
	remotePeerID, err := resolvePeerID(header, false)
	if err != nil {
		t.Fatal(err)
	}
	if remotePeerID != "server-peer" {
		t.Fatalf("expected server-peer, got %s", remotePeerID)
	}

	select {
	case got := <-received:
		if got != "client-peer" {
			t.Fatalf("expected client-peer, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the session handshake")
	}
}
